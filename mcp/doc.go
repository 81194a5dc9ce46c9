// Package mcp exposes the agentpay service as MCP (Model Context Protocol) tools.
//
// Every tool validates its arguments against a JSON schema, calls the matching
// agentpay.Service operation and returns the result as pretty-printed JSON
// text. Operation errors become tool results with IsError set, so a failed call
// never ends the session.
//
// # Usage
//
//	svc := agentpay.NewService(agentpay.WithProvider(baseProvider))
//	server, err := mcp.NewServer(svc, mcp.WithLogger(log))
//	if err != nil {
//	    return err
//	}
//	return mcp.Serve(ctx, server) // stdio
//
// # Tools
//
//   - get_wallet_address(chain?)
//   - get_balance(address?, chain?)
//   - create_payment_request(amount, chain?, memo?, expires_in_minutes?)
//   - check_payment_status(payment_id)
//   - send_usdc(to, amount, chain?)
//   - get_transaction_status(tx_hash, chain?)
//   - list_payment_requests(status?, chain?)
package mcp
