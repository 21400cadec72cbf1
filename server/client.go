package server

import (
	"context"
	"strings"

	"connectrpc.com/connect"
)

// ControlClient calls a ControlService over Connect with the CBOR codec.
type ControlClient struct {
	setCode    *connect.Client[SetCodeRequest, SetCodeResponse]
	toggleLink *connect.Client[ToggleLinkRequest, ToggleLinkResponse]
	inspect    *connect.Client[InspectRequest, InspectResponse]
	save       *connect.Client[SaveRequest, SaveResponse]
	restore    *connect.Client[RestoreRequest, RestoreResponse]
	tick       *connect.Client[TickRequest, TickResponse]
}

// NewControlClient constructs a client for the control service at
// baseURL (for example http://127.0.0.1:8420).
func NewControlClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *ControlClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{WithCBOR()}, opts...)
	return &ControlClient{
		setCode:    connect.NewClient[SetCodeRequest, SetCodeResponse](httpClient, baseURL+ControlSetCodeProcedure, opts...),
		toggleLink: connect.NewClient[ToggleLinkRequest, ToggleLinkResponse](httpClient, baseURL+ControlToggleLinkProcedure, opts...),
		inspect:    connect.NewClient[InspectRequest, InspectResponse](httpClient, baseURL+ControlInspectProcedure, opts...),
		save:       connect.NewClient[SaveRequest, SaveResponse](httpClient, baseURL+ControlSaveProcedure, opts...),
		restore:    connect.NewClient[RestoreRequest, RestoreResponse](httpClient, baseURL+ControlRestoreProcedure, opts...),
		tick:       connect.NewClient[TickRequest, TickResponse](httpClient, baseURL+ControlTickProcedure, opts...),
	}
}

// SetCode calls ControlService.SetCode.
func (c *ControlClient) SetCode(ctx context.Context, req *SetCodeRequest) (*SetCodeResponse, error) {
	resp, err := c.setCode.CallUnary(ctx, connect.NewRequest(req))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}

// ToggleLink calls ControlService.ToggleLink.
func (c *ControlClient) ToggleLink(ctx context.Context, req *ToggleLinkRequest) (*ToggleLinkResponse, error) {
	resp, err := c.toggleLink.CallUnary(ctx, connect.NewRequest(req))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}

// Inspect calls ControlService.Inspect.
func (c *ControlClient) Inspect(ctx context.Context, req *InspectRequest) (*InspectResponse, error) {
	resp, err := c.inspect.CallUnary(ctx, connect.NewRequest(req))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}

// Save calls ControlService.Save.
func (c *ControlClient) Save(ctx context.Context, req *SaveRequest) (*SaveResponse, error) {
	resp, err := c.save.CallUnary(ctx, connect.NewRequest(req))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}

// Restore calls ControlService.Restore.
func (c *ControlClient) Restore(ctx context.Context, req *RestoreRequest) (*RestoreResponse, error) {
	resp, err := c.restore.CallUnary(ctx, connect.NewRequest(req))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}

// Tick calls ControlService.Tick.
func (c *ControlClient) Tick(ctx context.Context, req *TickRequest) (*TickResponse, error) {
	resp, err := c.tick.CallUnary(ctx, connect.NewRequest(req))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}
