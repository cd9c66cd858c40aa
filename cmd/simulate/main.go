package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
)

const baseURL = "http://localhost:3000/api/chat/v1"

// Simplified DTOs for the script
type SendMessageRequest struct {
	ConversationID string `json:"conversation_id"`
	UserID         string `json:"user_id"`
	Message        string `json:"message"`
}

type SendMessageResponse struct {
	Data struct {
		TurnID      string  `json:"turn_id"`
		Reply       string  `json:"reply"`
		Outcome     string  `json:"outcome"`
		Reason      string  `json:"reason"`
		DialogState string  `json:"dialog_state"`
		Confidence  float64 `json:"confidence"`
		Cached      bool    `json:"cached"`
	} `json:"data"`
}

type scenario struct {
	name     string
	messages []string
}

func main() {
	fmt.Println("=== Support Conversation Simulation Client ===")

	scenarios := []scenario{
		{
			name: "happy path",
			messages: []string{
				"How do I reset my password?",
			},
		},
		{
			name: "cache hit on repeat",
			messages: []string{
				"How do I reset my password?",
			},
		},
		{
			name: "clarification flow",
			messages: []string{
				"I want a refund",
				"annual plan",
				"last week",
			},
		},
		{
			name: "operator request",
			messages: []string{
				"Let me talk to a human right now",
			},
		},
		{
			name: "frustrated user",
			messages: []string{
				"This is the third time sync breaks, I am done with this garbage",
			},
		},
	}

	userID := "sim-" + uuid.NewString()[:8]
	userColor := color.New(color.FgCyan, color.Bold)
	botColor := color.New(color.FgGreen)
	metaColor := color.New(color.FgYellow)

	for _, sc := range scenarios {
		conversationID := uuid.NewString()
		fmt.Printf("\n--- Scenario: %s (conversation %s) ---\n", sc.name, conversationID[:8])

		for _, text := range sc.messages {
			userColor.Printf("USER: %s\n", text)

			start := time.Now()
			res, err := sendMessage(conversationID, userID, text)
			elapsed := time.Since(start)

			if err != nil {
				color.Red("Error: %v", err)
				os.Exit(1)
			}

			botColor.Printf("BOT (%v): %s\n", elapsed.Round(time.Millisecond), res.Data.Reply)
			metaColor.Printf("     outcome=%s reason=%s state=%s confidence=%.2f cached=%v\n",
				res.Data.Outcome, res.Data.Reason, res.Data.DialogState, res.Data.Confidence, res.Data.Cached)

			time.Sleep(500 * time.Millisecond)
		}
	}
}

func sendMessage(conversationID, userID, text string) (*SendMessageResponse, error) {
	payload := SendMessageRequest{
		ConversationID: conversationID,
		UserID:         userID,
		Message:        text,
	}
	jsonBytes, err := json.Marshal(payload)
	if err != nil {
		log.Fatalf("marshal request: %v", err)
	}

	req, err := http.NewRequest("POST", baseURL+"/messages", bytes.NewBuffer(jsonBytes))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("API Error %d: %s", resp.StatusCode, string(body))
	}

	var res SendMessageResponse
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return nil, err
	}
	return &res, nil
}
