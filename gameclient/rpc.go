package gameclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
)

// The server exposes its mutating actions as MCP-style tools behind a single
// JSON-RPC endpoint. Every call gets a fresh UUID request id so retries at
// the transport layer stay distinguishable server-side.

type rpcRequest struct {
	JSONRPC string    `json:"jsonrpc"`
	ID      string    `json:"id"`
	Method  string    `json:"method"`
	Params  rpcParams `json:"params"`
}

type rpcParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

type rpcResponse struct {
	Result *rpcResult      `json:"result"`
	Error  json.RawMessage `json:"error"`
}

type rpcResult struct {
	IsError bool         `json:"isError"`
	Content []rpcContent `json:"content"`
}

type rpcContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func (c *Client) callTool(ctx context.Context, name string, args map[string]any) error {
	def, ok := catalog[name]
	if !ok {
		return fmt.Errorf("unknown game tool %q", name)
	}
	if err := def.validate(args); err != nil {
		return fmt.Errorf("tool %q: %w", name, err)
	}

	payload, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      uuid.NewString(),
		Method:  "tools/call",
		Params:  rpcParams{Name: name, Arguments: args},
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/mcp", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("tool %q: %s: %s", name, resp.Status, string(body))
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(body, &rpcResp); err != nil {
		return fmt.Errorf("tool %q: decode response: %w", name, err)
	}
	if len(rpcResp.Error) > 0 {
		return fmt.Errorf("tool %q: rpc error: %s", name, string(rpcResp.Error))
	}
	if rpcResp.Result != nil && rpcResp.Result.IsError {
		msg := "unknown error"
		if len(rpcResp.Result.Content) > 0 && rpcResp.Result.Content[0].Text != "" {
			msg = rpcResp.Result.Content[0].Text
		}
		return fmt.Errorf("tool %q: %s", name, msg)
	}
	return nil
}
