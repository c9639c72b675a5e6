package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/urfave/cli/v2"
)

const callerHeader = "X-Relay-Caller"

type errorResponse struct {
	Code     uint16            `json:"code"`
	Name     string            `json:"name"`
	Message  string            `json:"message"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// callAdmin sends a request to the admin api and decodes the json response
// into T.
func callAdmin[T any](ctx *cli.Context, method, path string, body any) (result T, err error) {
	var reqBody io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return result, err
		}
		reqBody = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx.Context, method, adminUrl(ctx, path), reqBody)
	if err != nil {
		return
	}
	req.Header.Add("Content-Type", "application/json")
	if caller := stringValue(ctx, callerFlagName); len(caller) > 0 {
		req.Header.Add(callerHeader, caller)
	}

	client := &http.Client{Timeout: timeout}
	resp, err := client.Do(req)
	if err != nil {
		return
	}
	// nolint
	defer resp.Body.Close()

	buf, err := io.ReadAll(resp.Body)
	if err != nil {
		return
	}
	if resp.StatusCode != http.StatusOK {
		var errResp errorResponse
		if json.Unmarshal(buf, &errResp) == nil && errResp.Name != "" {
			err = fmt.Errorf("%s: %s", errResp.Name, errResp.Message)
			return
		}
		err = fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(buf))
		return
	}

	err = json.Unmarshal(buf, &result)
	return
}

func printJSON(msg json.RawMessage) error {
	var out bytes.Buffer
	if err := json.Indent(&out, msg, "", "  "); err != nil {
		return err
	}
	fmt.Println(out.String())
	return nil
}
