package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	agentpay "github.com/x402-foundation/agentpay"
)

// Tool names
const (
	ToolGetWalletAddress     = "get_wallet_address"
	ToolGetBalance           = "get_balance"
	ToolCreatePaymentRequest = "create_payment_request"
	ToolCheckPaymentStatus   = "check_payment_status"
	ToolSendUSDC             = "send_usdc"
	ToolGetTransactionStatus = "get_transaction_status"
	ToolListPaymentRequests  = "list_payment_requests"
)

type toolDef struct {
	name        string
	description string
	schema      map[string]interface{}
	handle      func(ctx context.Context, v *argValidator, raw json.RawMessage) (interface{}, error)
}

type chainArgs struct {
	Chain string `json:"chain"`
}

type balanceArgs struct {
	Address string `json:"address"`
	Chain   string `json:"chain"`
}

type createArgs struct {
	Amount           string `json:"amount"`
	Chain            string `json:"chain"`
	Memo             string `json:"memo"`
	ExpiresInMinutes *int   `json:"expires_in_minutes"`
}

type checkArgs struct {
	PaymentID string `json:"payment_id"`
}

type sendArgs struct {
	To     string `json:"to"`
	Amount string `json:"amount"`
	Chain  string `json:"chain"`
}

type txStatusArgs struct {
	TxHash string `json:"tx_hash"`
	Chain  string `json:"chain"`
}

type listArgs struct {
	Status string `json:"status"`
	Chain  string `json:"chain"`
}

// listResult wraps the list so clients always receive an object
type listResult struct {
	Count    int                        `json:"count"`
	Requests []*agentpay.PaymentRequest `json:"requests"`
}

func (s *Server) tools() []toolDef {
	return []toolDef{
		{
			name:        ToolGetWalletAddress,
			description: "Get the wallet address configured for a chain. Reports read_only when no signing key is set.",
			schema: objectSchema(map[string]interface{}{
				"chain": chainProperty,
			}),
			handle: func(ctx context.Context, v *argValidator, raw json.RawMessage) (interface{}, error) {
				var args chainArgs
				if err := v.decode(raw, &args); err != nil {
					return nil, err
				}
				return s.svc.GetWalletAddress(ctx, args.Chain)
			},
		},
		{
			name:        ToolGetBalance,
			description: "Get the USDC balance of an address. Defaults to the configured wallet.",
			schema: objectSchema(map[string]interface{}{
				"address": map[string]interface{}{
					"type":        "string",
					"description": "Address to inspect",
				},
				"chain": chainProperty,
			}),
			handle: func(ctx context.Context, v *argValidator, raw json.RawMessage) (interface{}, error) {
				var args balanceArgs
				if err := v.decode(raw, &args); err != nil {
					return nil, err
				}
				return s.svc.GetBalance(ctx, args.Address, args.Chain)
			},
		},
		{
			name:        ToolCreatePaymentRequest,
			description: "Create a USDC payment request payable to the configured wallet.",
			schema: objectSchema(map[string]interface{}{
				"amount": amountProperty,
				"chain":  chainProperty,
				"memo": map[string]interface{}{
					"type":        "string",
					"description": "Free text shown to the payer",
				},
				"expires_in_minutes": map[string]interface{}{
					"type":        "integer",
					"minimum":     0,
					"description": "Minutes until the request expires (default 60)",
				},
			}, "amount"),
			handle: func(ctx context.Context, v *argValidator, raw json.RawMessage) (interface{}, error) {
				var args createArgs
				if err := v.decode(raw, &args); err != nil {
					return nil, err
				}
				return s.svc.CreatePaymentRequest(ctx, args.Amount, args.Chain, args.Memo, args.ExpiresInMinutes)
			},
		},
		{
			name:        ToolCheckPaymentStatus,
			description: "Check whether a payment request has been paid, scanning recent inbound transfers.",
			schema: objectSchema(map[string]interface{}{
				"payment_id": map[string]interface{}{
					"type":        "string",
					"minLength":   1,
					"description": "Id returned by create_payment_request",
				},
			}, "payment_id"),
			handle: func(ctx context.Context, v *argValidator, raw json.RawMessage) (interface{}, error) {
				var args checkArgs
				if err := v.decode(raw, &args); err != nil {
					return nil, err
				}
				return s.svc.CheckPaymentStatus(ctx, args.PaymentID)
			},
		},
		{
			name:        ToolSendUSDC,
			description: "Send USDC from the configured wallet. The transfer is submitted once and never retried.",
			schema: objectSchema(map[string]interface{}{
				"to": map[string]interface{}{
					"type":        "string",
					"minLength":   1,
					"description": "Recipient address",
				},
				"amount": amountProperty,
				"chain":  chainProperty,
			}, "to", "amount"),
			handle: func(ctx context.Context, v *argValidator, raw json.RawMessage) (interface{}, error) {
				var args sendArgs
				if err := v.decode(raw, &args); err != nil {
					return nil, err
				}
				return s.svc.SendUSDC(ctx, args.To, args.Amount, args.Chain)
			},
		},
		{
			name:        ToolGetTransactionStatus,
			description: "Get the confirmation status and USDC details of a transaction.",
			schema: objectSchema(map[string]interface{}{
				"tx_hash": map[string]interface{}{
					"type":        "string",
					"minLength":   1,
					"description": "Transaction hash or signature",
				},
				"chain": chainProperty,
			}, "tx_hash"),
			handle: func(ctx context.Context, v *argValidator, raw json.RawMessage) (interface{}, error) {
				var args txStatusArgs
				if err := v.decode(raw, &args); err != nil {
					return nil, err
				}
				return s.svc.GetTransactionStatus(ctx, args.TxHash, args.Chain)
			},
		},
		{
			name:        ToolListPaymentRequests,
			description: "List payment requests, newest first, optionally filtered by status and chain.",
			schema: objectSchema(map[string]interface{}{
				"status": map[string]interface{}{
					"type": "string",
					"enum": []interface{}{
						string(agentpay.StatusPending),
						string(agentpay.StatusConfirmed),
						string(agentpay.StatusExpired),
					},
				},
				"chain": chainProperty,
			}),
			handle: func(ctx context.Context, v *argValidator, raw json.RawMessage) (interface{}, error) {
				var args listArgs
				if err := v.decode(raw, &args); err != nil {
					return nil, err
				}
				reqs, err := s.svc.ListPaymentRequests(ctx, args.Status, args.Chain)
				if err != nil {
					return nil, err
				}
				if reqs == nil {
					reqs = []*agentpay.PaymentRequest{}
				}
				return listResult{Count: len(reqs), Requests: reqs}, nil
			},
		},
	}
}

func jsonResult(v interface{}) (*mcpsdk.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode tool result: %w", err)
	}
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: string(data)}},
	}, nil
}

// errorResult renders err as {"error": code, "message": msg}.
// Errors without an agentpay code are reported as internal_error.
func errorResult(err error) *mcpsdk.CallToolResult {
	body := map[string]interface{}{
		"error":   "internal_error",
		"message": err.Error(),
	}
	var e *agentpay.Error
	if errors.As(err, &e) {
		body["error"] = e.Code
		body["message"] = e.Message
		if len(e.Details) > 0 {
			body["details"] = e.Details
		}
	}
	data, _ := json.MarshalIndent(body, "", "  ")
	return &mcpsdk.CallToolResult{
		IsError: true,
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: string(data)}},
	}
}
