// File: internal/customer/csv.go
package customer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"sort"
	"strings"
	"time"

	"wasa_admin_backend/internal/audit"
	"wasa_admin_backend/internal/common"
	"wasa_admin_backend/internal/csvio"
	"wasa_admin_backend/internal/filestorage"
	"wasa_admin_backend/internal/location"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Schema is the customer CSV layout. Export writes these headers, so an
// exported file can be imported again unchanged.
var Schema = csvio.NewSchema(
	csvio.Column{Name: "inspection_code", Required: true, Aliases: []string{"Inspection Code", "inspection_no", "insp code", "insp no", "inspection number"}},
	csvio.Column{Name: "account_number", Aliases: []string{"Account No", "Account #", "account", "acc no"}},
	csvio.Column{Name: "full_name", Required: true, Aliases: []string{"Customer Name", "name", "customer", "consumer name"}},
	csvio.Column{Name: "phone", Aliases: []string{"mobile", "phone number", "mobile no", "contact"}},
	csvio.Column{Name: "email", Aliases: []string{"e-mail", "email address"}},
	csvio.Column{Name: "address", Aliases: []string{"customer address", "holding address"}},
	csvio.Column{Name: "wasa_code", Required: true, Aliases: []string{"wasa", "city corporation"}},
	csvio.Column{Name: "zone_code", Required: true, Aliases: []string{"zone", "zone code", "zone no"}},
	csvio.Column{Name: "area_code", Required: true, Aliases: []string{"area", "area code"}},
	csvio.Column{Name: "tariff_code", Required: true, Aliases: []string{"tariff", "tariff category", "category code"}},
	csvio.Column{Name: "connection_type", Aliases: []string{"connection", "conn type"}},
	csvio.Column{Name: "status", Aliases: []string{"customer status"}},
	csvio.Column{Name: "connected_at", Aliases: []string{"connection date", "connected on"}},
)

var connectedAtLayouts = []string{"2006-01-02", time.RFC3339, "02/01/2006"}

// importRow is a record whose codes have been resolved.
type importRow struct {
	row            int
	inspectionCode string
	accountNumber  string
	fullName       string
	phone          *string
	email          *string
	address        *string
	chain          location.Chain
	tariffID       uuid.UUID
	connectionType string
	status         string
	connectedAt    *time.Time
}

func nonEmpty(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

func errorMessage(err error) string {
	if apiErr, ok := common.IsAPIError(err); ok {
		if d, ok := apiErr.Details.(string); ok && d != "" {
			return d
		}
		return apiErr.Message
	}
	return err.Error()
}

// tariffCache resolves tariff codes once per import.
type tariffCache struct {
	lookup TariffLookup
	ids    map[string]*uuid.UUID
}

func (t *tariffCache) resolve(ctx context.Context, code string) (*uuid.UUID, error) {
	key := strings.ToLower(code)
	if id, ok := t.ids[key]; ok {
		return id, nil
	}
	cat, err := t.lookup.FindCategoryByCode(ctx, code)
	if err != nil {
		if apiErr, ok := common.IsAPIError(err); ok && apiErr.Is(common.ErrNotFound) {
			t.ids[key] = nil
			return nil, nil
		}
		return nil, err
	}
	t.ids[key] = &cat.ID
	return &cat.ID, nil
}

// resolveRow validates one record. A non-nil error aborts the import; row
// level problems are returned as RowErrors.
func (s *service) resolveRow(ctx context.Context, rec csvio.Record, idx *location.Index, tariffs *tariffCache) (*importRow, []csvio.RowError, error) {
	var rowErrs []csvio.RowError
	fail := func(field, msg string) {
		rowErrs = append(rowErrs, csvio.RowError{Row: rec.Row, Field: field, Message: msg})
	}

	row := &importRow{
		row:            rec.Row,
		inspectionCode: normalizeInspectionCode(rec.Get("inspection_code")),
		accountNumber:  rec.Get("account_number"),
		fullName:       rec.Get("full_name"),
		phone:          nonEmpty(rec.Get("phone")),
		email:          nonEmpty(strings.ToLower(rec.Get("email"))),
		address:        nonEmpty(rec.Get("address")),
		connectionType: strings.ToLower(rec.Get("connection_type")),
		status:         strings.ToLower(rec.Get("status")),
	}

	chain, err := idx.ResolveCodes(rec.Get("wasa_code"), rec.Get("zone_code"), rec.Get("area_code"))
	if err != nil {
		var codeErr *location.CodeError
		if errors.As(err, &codeErr) {
			fail(codeErr.Field, codeErr.Message)
		} else {
			fail("area_code", err.Error())
		}
	}
	row.chain = chain

	tariffID, err := tariffs.resolve(ctx, rec.Get("tariff_code"))
	if err != nil {
		return nil, nil, err
	}
	if tariffID == nil {
		fail("tariff_code", fmt.Sprintf("unknown tariff code %q", rec.Get("tariff_code")))
	} else {
		row.tariffID = *tariffID
	}

	if row.email != nil {
		if err := s.validate.Var(*row.email, "email"); err != nil {
			fail("email", "must be a valid email address")
		}
	}
	switch row.connectionType {
	case "", ConnectionWater, ConnectionSewer, ConnectionWaterSewer:
	default:
		fail("connection_type", "must be one of water, sewer, water_sewer")
	}
	switch row.status {
	case "", StatusActive, StatusInactive, StatusDisconnected:
	default:
		fail("status", "must be one of active, inactive, disconnected")
	}
	if raw := rec.Get("connected_at"); raw != "" {
		var parsed bool
		for _, layout := range connectedAtLayouts {
			if t, err := time.Parse(layout, raw); err == nil {
				t = t.UTC()
				row.connectedAt = &t
				parsed = true
				break
			}
		}
		if !parsed {
			fail("connected_at", "must be a date in YYYY-MM-DD format")
		}
	}
	return row, rowErrs, nil
}

// apply inserts or updates the customer for row. Optional columns that are
// blank in the file leave stored values untouched.
func (s *service) apply(ctx context.Context, row *importRow, dryRun bool) (*Customer, bool, error) {
	existing, err := s.repo.FindByInspectionCode(ctx, row.inspectionCode)
	if err != nil {
		return nil, false, err
	}
	if existing == nil {
		c := &Customer{
			AccountNumber:    row.accountNumber,
			InspectionCode:   row.inspectionCode,
			FullName:         row.fullName,
			Phone:            row.phone,
			Email:            row.email,
			Address:          row.address,
			WasaID:           row.chain.WasaID,
			ZoneID:           row.chain.ZoneID,
			AreaID:           row.chain.AreaID,
			TariffCategoryID: row.tariffID,
			ConnectionType:   row.connectionType,
			Status:           row.status,
			ConnectedAt:      row.connectedAt,
		}
		if c.AccountNumber == "" {
			c.AccountNumber = newAccountNumber()
		}
		if c.ConnectionType == "" {
			c.ConnectionType = ConnectionWater
		}
		if c.Status == "" {
			c.Status = StatusActive
		}
		if !dryRun {
			if err := s.repo.Create(ctx, c); err != nil {
				return nil, true, err
			}
		}
		return c, true, nil
	}

	c := existing
	c.FullName = row.fullName
	c.WasaID, c.ZoneID, c.AreaID = row.chain.WasaID, row.chain.ZoneID, row.chain.AreaID
	c.TariffCategoryID = row.tariffID
	if row.accountNumber != "" {
		c.AccountNumber = row.accountNumber
	}
	if row.phone != nil {
		c.Phone = row.phone
	}
	if row.email != nil {
		c.Email = row.email
	}
	if row.address != nil {
		c.Address = row.address
	}
	if row.connectionType != "" {
		c.ConnectionType = row.connectionType
	}
	if row.status != "" {
		c.Status = row.status
	}
	if row.connectedAt != nil {
		c.ConnectedAt = row.connectedAt
	}
	if !dryRun {
		if err := s.repo.Update(ctx, c); err != nil {
			return nil, false, err
		}
	}
	return c, false, nil
}

// Import reconciles a customer CSV against the database in one pass:
// rows whose inspection code is unknown are inserted, the rest update the
// existing customer. Rows with errors are skipped and reported.
func (s *service) Import(ctx context.Context, actor common.Actor, r io.Reader, opts ImportOptions) (*ImportReport, error) {
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

	idx, err := s.locations.Index(ctx)
	if err != nil {
		return nil, err
	}
	tariffs := &tariffCache{lookup: s.tariffs, ids: make(map[string]*uuid.UUID)}

	report := &ImportReport{
		TotalRows:      parsed.TotalRows,
		DryRun:         opts.DryRun,
		IgnoredColumns: parsed.Ignored,
		ArchiveKey:     opts.ArchiveKey,
		Errors:         append([]csvio.RowError{}, parsed.Errors...),
	}
	seen := make(map[string]int, len(parsed.Records))
	var touched []Customer

	for _, rec := range parsed.Records {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		code := normalizeInspectionCode(rec.Get("inspection_code"))
		if first, dup := seen[code]; dup {
			report.Errors = append(report.Errors, csvio.RowError{
				Row: rec.Row, Field: "inspection_code",
				Message: fmt.Sprintf("duplicate inspection code %q, first seen on row %d", code, first),
			})
			continue
		}
		seen[code] = rec.Row

		row, rowErrs, err := s.resolveRow(ctx, rec, idx, tariffs)
		if err != nil {
			s.logger.Error("Customer import aborted", zap.Error(err), zap.Int("row", rec.Row))
			return nil, common.ErrInternalServer.WithDetails("Import stopped because of a server error.")
		}
		if len(rowErrs) > 0 {
			report.Errors = append(report.Errors, rowErrs...)
			continue
		}

		c, inserted, err := s.apply(ctx, row, opts.DryRun)
		if err != nil {
			if _, ok := common.IsAPIError(err); !ok && !common.IsUniqueViolation(err) {
				s.logger.Error("Customer import aborted", zap.Error(err), zap.Int("row", rec.Row))
				return nil, common.ErrInternalServer.WithDetails("Import stopped because of a server error.")
			}
			report.Errors = append(report.Errors, csvio.RowError{Row: rec.Row, Message: errorMessage(err)})
			continue
		}
		if inserted {
			report.Inserted++
		} else {
			report.Updated++
		}
		if !opts.DryRun {
			touched = append(touched, *c)
		}
	}

	sort.SliceStable(report.Errors, func(i, j int) bool { return report.Errors[i].Row < report.Errors[j].Row })
	skipped := make(map[int]struct{}, len(report.Errors))
	for _, e := range report.Errors {
		skipped[e.Row] = struct{}{}
	}
	report.Skipped = len(skipped)

	if !opts.DryRun {
		s.syncIndex(ctx, touched...)
		s.audit.Record(ctx, audit.Entry{Actor: actor, Action: "customer.import", EntityType: "customer_import", EntityID: opts.ArchiveKey})
	}
	s.logger.Info("Customer import finished",
		zap.Bool("dry_run", opts.DryRun),
		zap.Int("total_rows", report.TotalRows),
		zap.Int("inserted", report.Inserted),
		zap.Int("updated", report.Updated),
		zap.Int("skipped", report.Skipped),
	)
	return report, nil
}

// ImportUpload archives a multipart upload, when a store is configured, and
// imports it.
func (s *service) ImportUpload(ctx context.Context, actor common.Actor, fileHeader *multipart.FileHeader, dryRun bool) (*ImportReport, error) {
	opts := ImportOptions{DryRun: dryRun}
	if s.store != nil && !dryRun {
		key, err := filestorage.SaveUpload(ctx, s.store, fileHeader, "imports/customers")
		if err != nil {
			s.logger.Warn("Failed to archive customer upload", zap.Error(err), zap.String("filename", fileHeader.Filename))
			return nil, common.ErrBadRequest.WithDetails(err.Error())
		}
		opts.ArchiveKey = key
	}
	f, err := fileHeader.Open()
	if err != nil {
		return nil, common.ErrBadRequest.WithDetails("Could not read the uploaded file.")
	}
	defer f.Close()
	return s.Import(ctx, actor, f, opts)
}

// Export writes the customers matching q as CSV and returns the row count.
func (s *service) Export(ctx context.Context, w io.Writer, q ListQuery) (int, error) {
	idx, err := s.locations.Index(ctx)
	if err != nil {
		return 0, err
	}
	tariffCodes := make(map[uuid.UUID]string)
	tariffCode := func(id uuid.UUID) string {
		if code, ok := tariffCodes[id]; ok {
			return code
		}
		code := ""
		if cat, err := s.tariffs.GetCategory(ctx, id); err == nil {
			code = cat.Code
		}
		tariffCodes[id] = code
		return code
	}

	cw := csvio.NewWriter(w, Schema)
	if err := cw.WriteHeader(); err != nil {
		return 0, err
	}
	rows := 0
	err = s.repo.Scan(ctx, q, exportBatchSize, func(batch []Customer) error {
		for i := range batch {
			c := &batch[i]
			values := map[string]string{
				"inspection_code": c.InspectionCode,
				"account_number":  c.AccountNumber,
				"full_name":       c.FullName,
				"wasa_code":       idx.Code(c.WasaID),
				"zone_code":       idx.Code(c.ZoneID),
				"area_code":       idx.Code(c.AreaID),
				"tariff_code":     tariffCode(c.TariffCategoryID),
				"connection_type": c.ConnectionType,
				"status":          c.Status,
			}
			if c.Phone != nil {
				values["phone"] = *c.Phone
			}
			if c.Email != nil {
				values["email"] = *c.Email
			}
			if c.Address != nil {
				values["address"] = *c.Address
			}
			if c.ConnectedAt != nil {
				values["connected_at"] = c.ConnectedAt.UTC().Format("2006-01-02")
			}
			if err := cw.WriteRow(values); err != nil {
				return err
			}
			rows++
		}
		return cw.Flush()
	})
	if err != nil {
		return rows, err
	}
	return rows, cw.Flush()
}

// ArchiveExport writes the export to the file store and returns its key.
func (s *service) ArchiveExport(ctx context.Context, actor common.Actor, q ListQuery) (*ExportResult, error) {
	if s.store == nil {
		return nil, common.ErrServiceUnavailable.WithDetails("File storage is not configured.")
	}
	var buf bytes.Buffer
	rows, err := s.Export(ctx, &buf, q)
	if err != nil {
		s.logger.Error("Failed to build customer export", zap.Error(err))
		return nil, common.ErrInternalServer.WithDetails("Could not export customers.")
	}
	key := filestorage.NewKey("exports/customers", s.now(), ".csv")
	if err := s.store.Save(ctx, key, &buf, "text/csv"); err != nil {
		s.logger.Error("Failed to archive customer export", zap.Error(err), zap.String("key", key))
		return nil, common.ErrInternalServer.WithDetails("Could not store the export file.")
	}
	s.audit.Record(ctx, audit.Entry{Actor: actor, Action: "customer.export", EntityType: "customer_export", EntityID: key})
	s.logger.Info("Customer export archived", zap.String("key", key), zap.Int("rows", rows))
	return &ExportResult{Key: key, Rows: rows}, nil
}
