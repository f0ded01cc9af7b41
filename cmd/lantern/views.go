package main

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"lantern/internal/api"
	"lantern/internal/pipeline"
	"lantern/internal/queue"
)

func statusLabel(status string) string {
	return pipeline.StageLabel(queue.Status(status))
}

func formatDisplayTime(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t.UTC().Format("2006-01-02 15:04:05")
	}
	return value
}

func parseJobTime(value string) time.Time {
	if t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(value)); err == nil {
		return t
	}
	return time.Time{}
}

func buildJobRows(jobs []api.Job) [][]string {
	if len(jobs) == 0 {
		return nil
	}
	sorted := make([]api.Job, len(jobs))
	copy(sorted, jobs)
	sort.Slice(sorted, func(i, j int) bool {
		ti := parseJobTime(sorted[i].CreatedAt)
		tj := parseJobTime(sorted[j].CreatedAt)
		if ti.Equal(tj) {
			return sorted[i].JobID > sorted[j].JobID
		}
		return ti.After(tj)
	})

	rows := make([][]string, 0, len(sorted))
	for _, job := range sorted {
		rows = append(rows, []string{
			job.JobID,
			job.OriginalFilename,
			job.GenerationMode,
			statusLabel(job.Status),
			formatDisplayTime(job.CreatedAt),
		})
	}
	return rows
}

func buildJobCountRows(counts map[string]int) [][]string {
	if len(counts) == 0 {
		return nil
	}
	keys := make([]string, 0, len(counts))
	for key := range counts {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	rows := make([][]string, 0, len(keys))
	for _, key := range keys {
		rows = append(rows, []string{statusLabel(key), fmt.Sprintf("%d", counts[key])})
	}
	return rows
}

func buildHistoryRows(events []api.StageEvent) [][]string {
	rows := make([][]string, 0, len(events))
	for _, event := range events {
		rows = append(rows, []string{
			fmt.Sprintf("%d", event.SequenceNumber),
			statusLabel(event.Status),
			event.Detail,
			formatDisplayTime(event.CreatedAt),
		})
	}
	return rows
}

func buildUsageRows(usage []api.Usage) [][]string {
	rows := make([][]string, 0, len(usage))
	for _, entry := range usage {
		rows = append(rows, []string{
			statusLabel(entry.Stage),
			entry.Provider,
			entry.Model,
			fmt.Sprintf("%d", entry.PromptTokens),
			fmt.Sprintf("%d", entry.CompletionTokens),
			fmt.Sprintf("%d", entry.TotalTokens),
		})
	}
	return rows
}
