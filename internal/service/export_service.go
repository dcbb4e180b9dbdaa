package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/exstem-selftest/internal/model"
	"github.com/stemsi/exstem-selftest/internal/repository"
	"github.com/xuri/excelize/v2"
)

const (
	attemptsSheet  = "Attempts"
	questionsSheet = "Questions"
)

// ExportService builds spreadsheet exports of bank results.
type ExportService struct {
	banks       *BankService
	attemptRepo *repository.AttemptRepository
}

// NewExportService creates a new ExportService.
func NewExportService(banks *BankService, attemptRepo *repository.AttemptRepository) *ExportService {
	return &ExportService{banks: banks, attemptRepo: attemptRepo}
}

// BankResults exports every attempt at a bank as an xlsx workbook and
// returns it with a suggested file name.
func (s *ExportService) BankResults(ctx context.Context, bankID uuid.UUID) ([]byte, string, error) {
	payload, err := s.banks.Payload(ctx, bankID)
	if err != nil {
		return nil, "", err
	}
	attempts, err := s.attemptRepo.ListByBank(ctx, bankID)
	if err != nil {
		return nil, "", fmt.Errorf("list attempts: %w", err)
	}

	data, err := BuildResultsWorkbook(payload.Questions, attempts)
	if err != nil {
		return nil, "", err
	}
	name := fmt.Sprintf("results-%s-%s.xlsx", bankID.String()[:8], time.Now().UTC().Format("20060102"))
	return data, name, nil
}

type questionStats struct {
	answered, correct, pending int
}

// BuildResultsWorkbook renders one row per attempt and one row of answer
// statistics per question.
func BuildResultsWorkbook(questions []model.Question, attempts []model.Attempt) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", attemptsSheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(questionsSheet); err != nil {
		return nil, fmt.Errorf("failed to create Excel sheet: %w", err)
	}

	header := []interface{}{"Attempt ID", "Learner ID", "Status", "Started At", "Finished At",
		"Score", "Max Score", "Percentage", "Reviewed Score"}
	if err := f.SetSheetRow(attemptsSheet, "A1", &header); err != nil {
		return nil, err
	}

	stats := make(map[string]*questionStats, len(questions))
	for _, q := range questions {
		stats[q.ID] = &questionStats{}
	}

	for i, a := range attempts {
		row := []interface{}{
			a.ID.String(), a.LearnerID, string(a.Status), a.StartedAt.UTC().Format(time.RFC3339),
			formatTime(a.FinishedAt), deref(a.Score), deref(a.MaxScore), derefInt(a.Percentage), deref(a.ReviewedScore),
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(attemptsSheet, cell, &row); err != nil {
			return nil, err
		}

		if a.Status != model.AttemptStatusCompleted || len(a.Record) == 0 {
			continue
		}
		var rec model.GradingRecord
		if err := json.Unmarshal(a.Record, &rec); err != nil {
			continue
		}
		for _, r := range rec.Breakdown {
			st, ok := stats[r.QuestionID]
			if !ok || r.Submitted == nil || r.Submitted.IsEmpty() {
				continue
			}
			st.answered++
			switch {
			case r.PendingReview:
				st.pending++
			case r.IsCorrect:
				st.correct++
			}
		}
	}

	qHeader := []interface{}{"Question ID", "Type", "Prompt", "Max Score", "Answered", "Correct", "Pending Review", "Correct Rate (%)"}
	if err := f.SetSheetRow(questionsSheet, "A1", &qHeader); err != nil {
		return nil, err
	}
	for i, q := range questions {
		st := stats[q.ID]
		rate := 0
		if graded := st.answered - st.pending; graded > 0 {
			rate = st.correct * 100 / graded
		}
		row := []interface{}{q.ID, string(q.Type), q.Prompt, q.MaxScore, st.answered, st.correct, st.pending, rate}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(questionsSheet, cell, &row); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write Excel file: %w", err)
	}
	return buf.Bytes(), nil
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func deref(v *float64) interface{} {
	if v == nil {
		return ""
	}
	return *v
}

func derefInt(v *int) interface{} {
	if v == nil {
		return ""
	}
	return *v
}
