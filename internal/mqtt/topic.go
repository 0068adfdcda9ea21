package mqtt

import (
	"fmt"
	"regexp"
)

type TopicKind int

const (
	TopicIgnored TopicKind = iota
	TopicDeviceAttribute
	TopicNodeAttribute
	TopicPropertyValue
	TopicPropertyAttribute
)

type ParsedHomieTopic struct {
	Kind       TopicKind
	DeviceId   string
	NodeId     string
	PropertyId string
	Attribute  string // without the leading $
}

const (
	homieIdPattern   = `([a-zA-Z0-9_-]+)`
	homieAttrPattern = `\$([a-zA-Z0-9_-]+)`
)

// HomieTopicParser classifies the topics of a Homie 4 tree below a prefix.
type HomieTopicParser struct {
	prefix             string
	deviceAttrRegexp   *regexp.Regexp
	nodeAttrRegexp     *regexp.Regexp
	propertyRegexp     *regexp.Regexp
	propertyAttrRegexp *regexp.Regexp
}

func NewHomieTopicParser(prefix string) *HomieTopicParser {
	return &HomieTopicParser{
		prefix:             prefix,
		deviceAttrRegexp:   deviceAttributeExtractor(prefix),
		nodeAttrRegexp:     nodeAttributeExtractor(prefix),
		propertyRegexp:     propertyValueExtractor(prefix),
		propertyAttrRegexp: propertyAttributeExtractor(prefix),
	}
}

func (p *HomieTopicParser) SubscriptionTopic() string {
	return fmt.Sprintf("%s/#", p.prefix)
}

func (p *HomieTopicParser) PropertySetTopic(deviceId, nodeId, propertyId string) string {
	return fmt.Sprintf("%s/%s/%s/%s/set", p.prefix, deviceId, nodeId, propertyId)
}

// Parse never fails: topics outside the grammar, /set topics and nested
// attributes such as $stats/uptime are TopicIgnored.
func (p *HomieTopicParser) Parse(topic string) ParsedHomieTopic {
	if m := p.deviceAttrRegexp.FindStringSubmatch(topic); m != nil {
		return ParsedHomieTopic{Kind: TopicDeviceAttribute, DeviceId: m[1], Attribute: m[2]}
	}
	if m := p.nodeAttrRegexp.FindStringSubmatch(topic); m != nil {
		return ParsedHomieTopic{Kind: TopicNodeAttribute, DeviceId: m[1], NodeId: m[2], Attribute: m[3]}
	}
	if m := p.propertyRegexp.FindStringSubmatch(topic); m != nil {
		return ParsedHomieTopic{Kind: TopicPropertyValue, DeviceId: m[1], NodeId: m[2], PropertyId: m[3]}
	}
	if m := p.propertyAttrRegexp.FindStringSubmatch(topic); m != nil {
		return ParsedHomieTopic{Kind: TopicPropertyAttribute, DeviceId: m[1], NodeId: m[2], PropertyId: m[3], Attribute: m[4]}
	}
	return ParsedHomieTopic{Kind: TopicIgnored}
}

func deviceAttributeExtractor(prefix string) *regexp.Regexp {
	return regexp.MustCompile(fmt.Sprintf("^%s/%s/%s$", regexp.QuoteMeta(prefix), homieIdPattern, homieAttrPattern))
}

func nodeAttributeExtractor(prefix string) *regexp.Regexp {
	return regexp.MustCompile(fmt.Sprintf("^%s/%s/%s/%s$", regexp.QuoteMeta(prefix), homieIdPattern, homieIdPattern, homieAttrPattern))
}

func propertyValueExtractor(prefix string) *regexp.Regexp {
	return regexp.MustCompile(fmt.Sprintf("^%s/%s/%s/%s$", regexp.QuoteMeta(prefix), homieIdPattern, homieIdPattern, homieIdPattern))
}

func propertyAttributeExtractor(prefix string) *regexp.Regexp {
	return regexp.MustCompile(fmt.Sprintf("^%s/%s/%s/%s/%s$", regexp.QuoteMeta(prefix), homieIdPattern, homieIdPattern, homieIdPattern, homieAttrPattern))
}
