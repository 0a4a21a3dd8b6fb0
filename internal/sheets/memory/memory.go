package memory

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"revdash/internal/core"
	"revdash/internal/ingest"
	ports "revdash/internal/sheets"
)

const (
	RecordsFile      = "records.csv"
	BankAccountsFile = "bank_accounts.csv"
)

var _ ports.Source = (*Store)(nil)

// Store serves records held in process. It backs local development and
// tests; data is seeded from CSV files or swapped with Replace.
type Store struct {
	mu      sync.Mutex
	records []core.TransactionRecord
	banks   []core.BankAccountRecord
	err     error
}

func New(records []core.TransactionRecord, banks []core.BankAccountRecord) *Store {
	s := &Store{}
	s.Replace(records, banks)
	return s
}

// NewFromFiles seeds the store from records.csv and bank_accounts.csv in
// base. Missing files leave the matching list empty.
func NewFromFiles(base string) (*Store, error) {
	recRows, err := readCSV(filepath.Join(base, RecordsFile))
	if err != nil {
		return nil, err
	}
	recs, err := ingest.ParseRecords(recRows)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", RecordsFile, err)
	}

	bankRows, err := readCSV(filepath.Join(base, BankAccountsFile))
	if err != nil {
		return nil, err
	}
	banks, err := ingest.ParseBankAccounts(bankRows)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", BankAccountsFile, err)
	}
	return New(recs.Records, banks.Accounts), nil
}

// Replace swaps the served data.
func (s *Store) Replace(records []core.TransactionRecord, banks []core.BankAccountRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append([]core.TransactionRecord(nil), records...)
	s.banks = append([]core.BankAccountRecord(nil), banks...)
}

// FailWith makes every call return err until it is called again with nil.
func (s *Store) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func (s *Store) FetchRecords(ctx context.Context) ([]core.TransactionRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return append([]core.TransactionRecord(nil), s.records...), nil
}

func (s *Store) FetchBankAccounts(ctx context.Context) ([]core.BankAccountRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return append([]core.BankAccountRecord(nil), s.banks...), nil
}

func (s *Store) TestConnection(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	var rows [][]string
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}
