package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/spec-kit/triage-service/internal/service"
)

var filterCmd = &cobra.Command{
	Use:   "filter",
	Short: "Triage queries matching a filter via the running API server",
	RunE:  runFilter,
}

var (
	filterStatus     string
	filterPriority   string
	filterChannel    string
	filterUnassigned bool
)

func init() {
	filterCmd.Flags().StringVar(&filterStatus, "status", "", "Filter by status (new, in_progress, escalated, resolved, closed)")
	filterCmd.Flags().StringVar(&filterPriority, "priority", "", "Filter by priority (low, medium, high, urgent)")
	filterCmd.Flags().StringVar(&filterChannel, "channel", "", "Filter by channel (email, social, chat, community)")
	filterCmd.Flags().BoolVar(&filterUnassigned, "unassigned-only", false, "Only queries without a team or assignee")
}

var apiClient = &http.Client{Timeout: 60 * time.Second}

// runFilter delegates to the server's filter endpoint rather than wiring the
// stack in-process. Filtered runs share the server's result cap and its view
// of the store.
func runFilter(cmd *cobra.Command, args []string) error {
	body := map[string]any{
		"status":         filterStatus,
		"priority":       filterPriority,
		"channel":        filterChannel,
		"unassignedOnly": filterUnassigned,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	resp, err := apiClient.Post(apiAddr+"/api/assignment/assign-by-filter", "application/json", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("API error (%d): %s", resp.StatusCode, string(raw))
	}

	var envelope struct {
		Data service.BatchResult `json:"data"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	printBatchResult(&envelope.Data)
	return nil
}
