package server

import (
	"encoding/json"
	"net/http"

	"github.com/berfenger/homie2google/pkg/ghome"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// FulfillmentHandler serves the smart home intents of the authenticated user.
// Only the first input of a request is handled.
func (s *Server) FulfillmentHandler(c echo.Context) error {
	userId, _ := c.Get(CONTEXT_USER_ID).(string)

	var req ghome.Request
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid fulfillment request")
	}
	logger := s.logger.With(zap.String("user", userId), zap.String("request_id", req.RequestID))

	home, ok := s.homes[userId]
	if !ok {
		logger.Warn("fulfillment for unknown user")
		return c.JSON(http.StatusOK, ghome.Response{
			RequestID: req.RequestID,
			Payload:   ghome.ErrorPayload{ErrorCode: ghome.ErrorAuthFailure},
		})
	}
	if len(req.Inputs) == 0 {
		return c.JSON(http.StatusOK, ghome.Response{
			RequestID: req.RequestID,
			Payload:   ghome.ErrorPayload{ErrorCode: ghome.ErrorProtocol, DebugString: "request has no inputs"},
		})
	}

	input := req.Inputs[0]
	logger.Debug("fulfillment", zap.String("intent", input.Intent))
	switch input.Intent {
	case ghome.IntentSync:
		devices := s.fulfillment.Sync(home.Devices())
		if devices == nil {
			devices = []ghome.Device{}
		}
		return c.JSON(http.StatusOK, ghome.Response{
			RequestID: req.RequestID,
			Payload:   ghome.SyncResponsePayload{AgentUserID: userId, Devices: devices},
		})
	case ghome.IntentQuery:
		var payload ghome.QueryRequestPayload
		if err := json.Unmarshal(input.Payload, &payload); err != nil {
			return s.protocolError(c, req, err)
		}
		ids := make([]string, len(payload.Devices))
		for i, d := range payload.Devices {
			ids[i] = d.ID
		}
		return c.JSON(http.StatusOK, ghome.Response{
			RequestID: req.RequestID,
			Payload:   ghome.QueryResponsePayload{Devices: s.fulfillment.Query(home.Devices(), ids)},
		})
	case ghome.IntentExecute:
		var payload ghome.ExecuteRequestPayload
		if err := json.Unmarshal(input.Payload, &payload); err != nil {
			return s.protocolError(c, req, err)
		}
		results := s.fulfillment.Execute(c.Request().Context(), home, payload.Commands)
		if results == nil {
			results = []ghome.CommandResult{}
		}
		return c.JSON(http.StatusOK, ghome.Response{
			RequestID: req.RequestID,
			Payload:   ghome.ExecuteResponsePayload{Commands: results},
		})
	case ghome.IntentDisconnect:
		logger.Info("user unlinked")
		return c.JSON(http.StatusOK, struct{}{})
	default:
		logger.Warn("unsupported intent", zap.String("intent", input.Intent))
		return c.JSON(http.StatusOK, ghome.Response{
			RequestID: req.RequestID,
			Payload:   ghome.ErrorPayload{ErrorCode: ghome.ErrorNotSupported, DebugString: input.Intent},
		})
	}
}

func (s *Server) protocolError(c echo.Context, req ghome.Request, err error) error {
	s.logger.Info("malformed intent payload", zap.String("request_id", req.RequestID), zap.Error(err))
	return c.JSON(http.StatusOK, ghome.Response{
		RequestID: req.RequestID,
		Payload:   ghome.ErrorPayload{ErrorCode: ghome.ErrorProtocol, DebugString: err.Error()},
	})
}
