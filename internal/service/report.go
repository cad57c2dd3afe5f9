package service

import (
	"context"
	"time"

	"token-vending-service/internal/dto"
	"token-vending-service/internal/model"
	"token-vending-service/internal/repository"

	"github.com/shopspring/decimal"
)

const reportDateLayout = "2006-01-02"

type ReportService interface {
	// Summary covers [from, to] inclusive, both as YYYY-MM-DD. Empty values
	// default to the last 30 days.
	Summary(ctx context.Context, from, to string) (*dto.SummaryReport, error)
}

type reportServiceImpl struct {
	txnRepo repository.TransactionRepository
	now     func() time.Time
}

func NewReportService(txnRepo repository.TransactionRepository) ReportService {
	return &reportServiceImpl{
		txnRepo: txnRepo,
		now:     time.Now,
	}
}

func (s *reportServiceImpl) Summary(ctx context.Context, from, to string) (*dto.SummaryReport, error) {
	today := s.now().In(jakarta)
	toDay := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, jakarta)
	if to != "" {
		t, err := time.ParseInLocation(reportDateLayout, to, jakarta)
		if err != nil {
			return nil, badRequest("to must be YYYY-MM-DD")
		}
		toDay = t
	}

	fromDay := toDay.AddDate(0, 0, -29)
	if from != "" {
		f, err := time.ParseInLocation(reportDateLayout, from, jakarta)
		if err != nil {
			return nil, badRequest("from must be YYYY-MM-DD")
		}
		fromDay = f
	}
	if fromDay.After(toDay) {
		return nil, badRequest("from must not be after to")
	}
	end := toDay.AddDate(0, 0, 1)

	summaries, err := s.txnRepo.SummarizeByType(ctx, fromDay, end)
	if err != nil {
		return nil, internalError("summarize transactions", err)
	}
	failed, err := s.txnRepo.CountByStatus(ctx, model.StatusFailedVending, fromDay, end)
	if err != nil {
		return nil, internalError("count failed vends", err)
	}

	report := &dto.SummaryReport{
		From:          fromDay.Format(reportDateLayout),
		To:            toDay.Format(reportDateLayout),
		ByType:        make([]*dto.TypeSummaryItem, 0, len(summaries)),
		TotalNominal:  decimal.Zero,
		TotalPayment:  decimal.Zero,
		FailedVending: failed,
	}
	for _, summary := range summaries {
		report.ByType = append(report.ByType, &dto.TypeSummaryItem{
			TokenType:    summary.TokenType,
			Count:        summary.Count,
			NominalTotal: summary.NominalTotal,
			PaymentTotal: summary.PaymentTotal,
		})
		report.TotalCount += summary.Count
		report.TotalNominal = report.TotalNominal.Add(summary.NominalTotal)
		report.TotalPayment = report.TotalPayment.Add(summary.PaymentTotal)
	}

	return report, nil
}
