// File: internal/meter/csv.go
package meter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"sort"
	"strconv"
	"strings"
	"time"

	"wasa_admin_backend/internal/audit"
	"wasa_admin_backend/internal/common"
	"wasa_admin_backend/internal/csvio"
	"wasa_admin_backend/internal/filestorage"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Schema is the meter CSV layout. meter_number is the business key.
var Schema = csvio.NewSchema(
	csvio.Column{Name: "meter_number", Required: true, Aliases: []string{"Meter No", "Meter #", "meter", "meter serial"}},
	csvio.Column{Name: "inspection_code", Aliases: []string{"Inspection Code", "inspection_no", "insp code"}},
	csvio.Column{Name: "meter_type", Aliases: []string{"type", "meter kind"}},
	csvio.Column{Name: "size_mm", Aliases: []string{"size", "meter size", "diameter"}},
	csvio.Column{Name: "installed_at", Aliases: []string{"installation date", "installed on"}},
	csvio.Column{Name: "status", Aliases: []string{"meter status"}},
)

// Import reconciles a meter CSV by meter number. A non-empty inspection code
// links the meter to that customer.
func (s *service) Import(ctx context.Context, actor common.Actor, r io.Reader, dryRun bool, archiveKey string) (*ImportReport, error) {
	parsed, err := csvio.Parse(r, Schema)
	if err != nil {
		var headerErr *csvio.HeaderError
		switch {
		case errors.As(err, &headerErr):
			return nil, common.NewValidationAPIError(map[string]string{"file": headerErr.Error()})
		case errors.Is(err, csvio.ErrEmptyFile):
			return nil, common.NewValidationAPIError(map[string]string{"file": "The uploaded file is empty."})
		}
		return nil, common.ErrBadRequest.WithDetails("The uploaded file is not a readable CSV file.")
	}

	report := &ImportReport{
		TotalRows:      parsed.TotalRows,
		DryRun:         dryRun,
		IgnoredColumns: parsed.Ignored,
		ArchiveKey:     archiveKey,
		Errors:         append([]csvio.RowError{}, parsed.Errors...),
	}
	seen := make(map[string]int, len(parsed.Records))
	customers := make(map[string]*uuid.UUID)

	for _, rec := range parsed.Records {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		number := normalizeMeterNumber(rec.Get("meter_number"))
		if first, dup := seen[number]; dup {
			report.Errors = append(report.Errors, csvio.RowError{
				Row: rec.Row, Field: "meter_number",
				Message: fmt.Sprintf("duplicate meter number %q, first seen on row %d", number, first),
			})
			continue
		}
		seen[number] = rec.Row

		var rowErrs []csvio.RowError
		fail := func(field, msg string) {
			rowErrs = append(rowErrs, csvio.RowError{Row: rec.Row, Field: field, Message: msg})
		}

		meterType := strings.ToLower(rec.Get("meter_type"))
		switch meterType {
		case "", TypeMechanical, TypeDigital, TypeSmart:
		default:
			fail("meter_type", "must be one of mechanical, digital, smart")
		}
		status := strings.ToLower(rec.Get("status"))
		switch status {
		case "", StatusActive, StatusFaulty, StatusRemoved:
		default:
			fail("status", "must be one of active, faulty, removed")
		}
		var size *int
		if raw := rec.Get("size_mm"); raw != "" {
			n, err := strconv.Atoi(strings.TrimSuffix(strings.ToLower(raw), "mm"))
			if err != nil || n < 0 {
				fail("size_mm", "must be a whole number of millimetres")
			} else {
				size = &n
			}
		}
		var installedAt *time.Time
		if raw := rec.Get("installed_at"); raw != "" {
			t, err := time.Parse("2006-01-02", raw)
			if err != nil {
				fail("installed_at", "must be a date in YYYY-MM-DD format")
			} else {
				installedAt = &t
			}
		}
		var customerID *uuid.UUID
		code := strings.ToUpper(rec.Get("inspection_code"))
		if code != "" {
			id, cached := customers[code]
			if !cached {
				c, err := s.customers.FindByInspectionCode(ctx, code)
				if err != nil {
					if apiErr, ok := common.IsAPIError(err); !ok || !apiErr.Is(common.ErrNotFound) {
						s.logger.Error("Meter import aborted", zap.Error(err), zap.Int("row", rec.Row))
						return nil, common.ErrInternalServer.WithDetails("Import stopped because of a server error.")
					}
				} else {
					id = &c.ID
				}
				customers[code] = id
			}
			if id == nil {
				fail("inspection_code", fmt.Sprintf("no customer has inspection code %q", code))
			}
			customerID = id
		}
		if len(rowErrs) > 0 {
			report.Errors = append(report.Errors, rowErrs...)
			continue
		}

		existing, err := s.repo.FindByMeterNumber(ctx, number)
		if err != nil {
			s.logger.Error("Meter import aborted", zap.Error(err), zap.Int("row", rec.Row))
			return nil, common.ErrInternalServer.WithDetails("Import stopped because of a server error.")
		}
		m := existing
		if m == nil {
			m = &Meter{MeterNumber: number, MeterType: TypeMechanical, Status: StatusActive}
		}
		if meterType != "" {
			m.MeterType = meterType
		}
		if status != "" {
			m.Status = status
		}
		if size != nil {
			m.SizeMM = *size
		}
		if installedAt != nil {
			m.InstalledAt = installedAt
		}
		if customerID != nil {
			m.CustomerID = customerID
			m.InspectionCode = &code
		}

		if !dryRun {
			if existing == nil {
				err = s.repo.Create(ctx, m)
			} else {
				err = s.repo.Update(ctx, m)
			}
			if err != nil {
				apiErr, ok := common.IsAPIError(err)
				if !ok {
					s.logger.Error("Meter import aborted", zap.Error(err), zap.Int("row", rec.Row))
					return nil, common.ErrInternalServer.WithDetails("Import stopped because of a server error.")
				}
				msg := apiErr.Message
				if d, ok := apiErr.Details.(string); ok && d != "" {
					msg = d
				}
				report.Errors = append(report.Errors, csvio.RowError{Row: rec.Row, Message: msg})
				continue
			}
		}
		if existing == nil {
			report.Inserted++
		} else {
			report.Updated++
		}
	}

	sort.SliceStable(report.Errors, func(i, j int) bool { return report.Errors[i].Row < report.Errors[j].Row })
	skipped := make(map[int]struct{}, len(report.Errors))
	for _, e := range report.Errors {
		skipped[e.Row] = struct{}{}
	}
	report.Skipped = len(skipped)

	if !dryRun {
		s.audit.Record(ctx, audit.Entry{Actor: actor, Action: "meter.import", EntityType: "meter_import", EntityID: archiveKey})
	}
	s.logger.Info("Meter import finished",
		zap.Bool("dry_run", dryRun),
		zap.Int("total_rows", report.TotalRows),
		zap.Int("inserted", report.Inserted),
		zap.Int("updated", report.Updated),
		zap.Int("skipped", report.Skipped),
	)
	return report, nil
}

func (s *service) ImportUpload(ctx context.Context, actor common.Actor, fileHeader *multipart.FileHeader, dryRun bool) (*ImportReport, error) {
	var key string
	if s.store != nil && !dryRun {
		var err error
		key, err = filestorage.SaveUpload(ctx, s.store, fileHeader, "imports/meters")
		if err != nil {
			s.logger.Warn("Failed to archive meter upload", zap.Error(err), zap.String("filename", fileHeader.Filename))
			return nil, common.ErrBadRequest.WithDetails(err.Error())
		}
	}
	f, err := fileHeader.Open()
	if err != nil {
		return nil, common.ErrBadRequest.WithDetails("Could not read the uploaded file.")
	}
	defer f.Close()
	return s.Import(ctx, actor, f, dryRun, key)
}
