//go:build ignore

// Manual smoke test for the chat and journal endpoints.
// Usage: go run scripts/test_chat_api.go (server must be running, set TOKEN below)
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/fatih/color"
	"github.com/google/uuid"
)

const baseURL = "http://localhost:3000/api"

var userToken = os.Getenv("EMOFLOW_TOKEN")

func prettyPrint(body []byte) {
	var v interface{}
	if err := json.Unmarshal(body, &v); err != nil {
		fmt.Println(string(body))
		return
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
}

func sendRequest(method, url string, body interface{}) (*http.Response, []byte, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		bodyReader = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequest(method, baseURL+url, bodyReader)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+userToken)

	resp, err := (&http.Client{}).Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	return resp, respBody, err
}

func main() {
	color.Cyan("🚀 Chat Pipeline Smoke Test\n")
	if userToken == "" {
		color.Red("EMOFLOW_TOKEN is not set")
		os.Exit(1)
	}

	sessionId := uuid.New()
	turns := []string{
		"I haven't been sleeping well, everything feels like too much",
		"Work mostly. I'm worried about losing my job.",
		"What can I actually do about it?",
	}

	for i, question := range turns {
		color.Yellow("\n[TURN %d] %s", i+1, question)
		resp, body, err := sendRequest("POST", "/chat", map[string]interface{}{
			"session_id":  sessionId,
			"round_index": i + 1,
			"question":    question,
		})
		if err != nil {
			color.Red("Failed: %v", err)
			os.Exit(1)
		}
		color.Green("Status: %s", resp.Status)
		prettyPrint(body)
	}

	color.Yellow("\n[CLOSE] ending session")
	resp, body, err := sendRequest("POST", "/chat/close", map[string]interface{}{
		"session_id": sessionId,
	})
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	color.Green("Status: %s", resp.Status)
	prettyPrint(body)

	color.Yellow("\n[JOURNAL] creating entry (async memory extraction)")
	resp, body, err = sendRequest("POST", "/journals", map[string]interface{}{
		"title":   "smoke test",
		"content": "Today I finally talked to my manager about the workload.",
	})
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	color.Green("Status: %s", resp.Status)
	prettyPrint(body)

	color.Cyan("\n✅ Smoke test finished")
}
