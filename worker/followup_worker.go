package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"leadpilot/kv"
	"leadpilot/models"
	"leadpilot/utils"
)

// ErrRunInProgress is returned when a trigger fires while a pass is
// still running in this process.
var ErrRunInProgress = errors.New("daily follow-up run already in progress")

const dateLayout = "2006-01-02"

// RunSummary is the aggregate result of one daily pass.
type RunSummary struct {
	Date             string `json:"date"`
	Processed        int    `json:"processed"`
	Sent             int    `json:"sent"`
	Errors           int    `json:"errors"`
	TotalKeysScanned int    `json:"totalKeysScanned"`
}

// FollowUpWorker runs the daily pass over all persisted follow-up
// records: it enumerates the namespace, filters to records due today,
// generates outreach copy, delivers email-channel messages, and advances
// each record to its terminal status exactly once.
type FollowUpWorker struct {
	Store     kv.Store
	Generator utils.Generator
	Mailer    utils.Mailer
	Logger    *log.Logger

	// Language passed to generation, defaults to "en".
	Language string
	// Interval between internal ticker runs when Start is used.
	Interval time.Duration

	mu  sync.Mutex
	now func() time.Time
}

func NewFollowUpWorker(store kv.Store, generator utils.Generator, mailer utils.Mailer, logger *log.Logger) *FollowUpWorker {
	return &FollowUpWorker{
		Store:     store,
		Generator: generator,
		Mailer:    mailer,
		Logger:    logger,
		Language:  "en",
		Interval:  24 * time.Hour,
		now:       time.Now,
	}
}

// Start runs the daily pass from an in-process ticker, for deployments
// without an external scheduler. The trigger endpoint stays usable; the
// run lock keeps the two from overlapping.
func (fw *FollowUpWorker) Start(ctx context.Context) {
	// Initial delay to let the server start up
	time.Sleep(10 * time.Second)

	fw.Logger.Println("Follow-up worker started")

	ticker := time.NewTicker(fw.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			fw.Logger.Println("Follow-up worker shutting down...")
			return
		case <-ticker.C:
			summary, err := fw.RunOnce(ctx)
			if err != nil {
				fw.Logger.Printf("Daily pass failed: %v", err)
				continue
			}
			fw.Logger.Printf("Daily pass complete: processed=%d sent=%d errors=%d scanned=%d",
				summary.Processed, summary.Sent, summary.Errors, summary.TotalKeysScanned)
		}
	}
}

// RunOnce performs one full pass and returns its summary. Per-record
// failures are counted and logged, never aborting the pass; only store
// misconfiguration, enumeration failure, or context cancellation end a
// run early.
func (fw *FollowUpWorker) RunOnce(ctx context.Context) (*RunSummary, error) {
	if fw.Store == nil {
		return nil, kv.ErrNotConfigured
	}
	if !fw.mu.TryLock() {
		return nil, ErrRunInProgress
	}
	defer fw.mu.Unlock()

	today := fw.now().Format(dateLayout)
	summary := &RunSummary{Date: today}

	keys, err := kv.ScanAll(ctx, fw.Store, models.KeyPrefix+"*")
	if err != nil {
		if !errors.Is(err, kv.ErrEnumerationIncomplete) {
			return nil, fmt.Errorf("enumerating follow-up keys: %w", err)
		}
		// Process the keys we did get; the remainder is picked up
		// by the next run.
		fw.Logger.Printf("Enumeration incomplete after iteration bound, continuing with %d keys", len(keys))
	}
	summary.TotalKeysScanned = len(keys)

	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		record, err := fw.loadDue(ctx, key, today)
		if err != nil {
			summary.Errors++
			utils.LogError("followup_load_failed", err, map[string]interface{}{"key": key})
			continue
		}
		if record == nil {
			continue
		}

		summary.Processed++
		sent, err := fw.processRecord(ctx, record)
		if sent {
			summary.Sent++
		}
		if err != nil {
			summary.Errors++
			utils.LogError("followup_process_failed", err, map[string]interface{}{
				"key":     key,
				"lead_id": record.LeadID,
				"step":    record.SequenceStep,
			})
		}
	}

	fw.Logger.Printf("Processed %d follow-ups for %s (%d sent, %d errors)",
		summary.Processed, today, summary.Sent, summary.Errors)
	return summary, nil
}

// loadDue fetches one record and decides whether it is due: present,
// still pending, and scheduled for today. Skips return (nil, nil) and
// are not counted.
func (fw *FollowUpWorker) loadDue(ctx context.Context, key, today string) (*models.FollowUpRecord, error) {
	value, ok, err := fw.Store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("loading record: %w", err)
	}
	if !ok {
		return nil, nil
	}

	var record models.FollowUpRecord
	if err := json.Unmarshal([]byte(value), &record); err != nil {
		return nil, fmt.Errorf("decoding record: %w", err)
	}

	if record.Status != models.StatusPending {
		return nil, nil
	}
	// The stored RFC3339 date keeps whatever offset it was scheduled
	// with; compare date components in the processor's zone.
	if record.ScheduledDate.In(fw.now().Location()).Format(dateLayout) != today {
		return nil, nil
	}
	return &record, nil
}

// processRecord handles one due record: generation, conditional email
// delivery, and the single pending → terminal transition. The returned
// bool reports a confirmed delivery. Collaborator failures are soft; the
// record still advances and keeps the failure in lastError.
func (fw *FollowUpWorker) processRecord(ctx context.Context, record *models.FollowUpRecord) (sent bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic processing record %s: %v", record.ID, r)
		}
	}()

	var subject, message string
	if fw.Generator != nil {
		result, genErr := fw.Generator.Generate(ctx, utils.GenerationRequest{
			CompanyName:   record.CompanyName,
			ContactPerson: record.ContactPerson,
			Industry:      record.Industry,
			City:          record.City,
			Website:       record.Website,
			Channel:       record.Channel,
			Tone:          record.Tone,
			Language:      fw.Language,
			Context:       fmt.Sprintf("Follow-up %d of %d. Focus: %s", record.SequenceStep, record.TotalSteps, record.FocusPoint),
		})
		if genErr != nil {
			record.LastError = genErr.Error()
			utils.LogError("generation_failed", genErr, map[string]interface{}{
				"lead_id": record.LeadID,
				"step":    record.SequenceStep,
			})
		} else {
			subject, message = result.Subject, result.Body
		}
	}

	if record.Channel == models.ChannelEmail && record.Email != "" && message != "" && fw.Mailer != nil {
		html := strings.ReplaceAll(message, "\n", "<br>")
		if sendErr := fw.Mailer.Send(ctx, record.Email, subject, html); sendErr != nil {
			record.LastError = sendErr.Error()
			utils.LogError("delivery_failed", sendErr, map[string]interface{}{
				"lead_id": record.LeadID,
				"step":    record.SequenceStep,
				"to":      record.Email,
			})
		} else {
			sent = true
		}
	}

	// The record advances regardless of collaborator outcome; failed
	// sends are surfaced through lastError and the counters, never
	// retried automatically.
	if record.Channel == models.ChannelEmail {
		record.Status = models.StatusSent
	} else {
		record.Status = models.StatusPendingManual
	}
	record.GeneratedSubject = subject
	record.GeneratedMessage = message
	record.ProcessedAt = utils.Pointer(fw.now())

	payload, err := json.Marshal(record)
	if err != nil {
		return sent, fmt.Errorf("encoding processed record %s: %w", record.ID, err)
	}
	if err := fw.Store.Put(ctx, record.Key(), string(payload), models.ProcessedTTL); err != nil {
		return sent, fmt.Errorf("writing processed record %s: %w", record.ID, err)
	}
	return sent, nil
}
