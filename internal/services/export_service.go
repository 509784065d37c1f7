package services

import (
	"bytes"
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
	"glucoach/internal/models/db_models"
	"glucoach/pkg/utils"
)

const transcriptSheet = "Transcript"

type ExportServiceInterface interface {
	// ExportTranscript renders a session's messages as an xlsx workbook and
	// returns its bytes with a suggested file name.
	ExportTranscript(ctx context.Context, principal utils.Principal, sessionID uuid.UUID) ([]byte, string, error)
}

type ExportService struct {
	sessionService SessionServiceInterface
}

func NewExportService(sessionService SessionServiceInterface) ExportServiceInterface {
	return &ExportService{sessionService: sessionService}
}

func (e *ExportService) ExportTranscript(ctx context.Context, principal utils.Principal, sessionID uuid.UUID) ([]byte, string, error) {
	session, err := e.sessionService.GetSession(ctx, principal, sessionID)
	if err != nil {
		return nil, "", err
	}
	messages, err := e.sessionService.ListMessages(ctx, principal, sessionID)
	if err != nil {
		return nil, "", err
	}

	f, err := buildTranscript(session, messages)
	if err != nil {
		return nil, "", err
	}
	defer f.Close()

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, "", fmt.Errorf("write transcript: %w", err)
	}
	name := fmt.Sprintf("coach_%s_%s.xlsx", session.ID.String()[:8], session.CreatedAt.Format("20060102"))
	return buf.Bytes(), name, nil
}

func buildTranscript(session *db_models.Session, messages []db_models.Message) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", transcriptSheet); err != nil {
		return nil, err
	}

	headers := []string{"#", "Time (UTC)", "Role", "Message", "Delivery"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(transcriptSheet, cell, h)
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#0F766E"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return nil, err
	}
	f.SetCellStyle(transcriptSheet, "A1", "E1", headerStyle)

	wrapStyle, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"},
	})
	if err != nil {
		return nil, err
	}

	for i, m := range messages {
		row := i + 2
		f.SetCellValue(transcriptSheet, fmt.Sprintf("A%d", row), i+1)
		f.SetCellValue(transcriptSheet, fmt.Sprintf("B%d", row), utils.FormatRFC3339UTC(m.CreatedAt))
		f.SetCellValue(transcriptSheet, fmt.Sprintf("C%d", row), string(m.Role))
		f.SetCellValue(transcriptSheet, fmt.Sprintf("D%d", row), m.Text)
		f.SetCellValue(transcriptSheet, fmt.Sprintf("E%d", row), deliveryLabel(m))
		f.SetCellStyle(transcriptSheet, fmt.Sprintf("D%d", row), fmt.Sprintf("D%d", row), wrapStyle)
	}

	f.SetColWidth(transcriptSheet, "A", "A", 5)
	f.SetColWidth(transcriptSheet, "B", "B", 22)
	f.SetColWidth(transcriptSheet, "C", "C", 12)
	f.SetColWidth(transcriptSheet, "D", "D", 80)
	f.SetColWidth(transcriptSheet, "E", "E", 10)

	f.SetDocProps(&excelize.DocProperties{Title: session.Title})
	return f, nil
}

func deliveryLabel(m db_models.Message) string {
	if m.DeliveryFailed {
		return "failed"
	}
	return "delivered"
}
