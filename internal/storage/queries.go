package storage

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type Transaction struct {
	ID         int64
	Date       string
	Department string
	Cash       string
	Online     string
}

type BankAccount struct {
	ID                int64
	BankDetails       string
	IfscCode          string
	UpiIds            string
	AccountHolderName string
	MainPurpose       string
	CurrentBalance    string
	AccountNumber     string
	LastUpdatedDate   string
	LastUpdatedTime   string
}

const listTransactions = `SELECT id, date, department, cash, online FROM transactions ORDER BY id`

func (q *Queries) ListTransactions(ctx context.Context) ([]Transaction, error) {
	rows, err := q.db.QueryContext(ctx, listTransactions)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Transaction
	for rows.Next() {
		var i Transaction
		if err := rows.Scan(&i.ID, &i.Date, &i.Department, &i.Cash, &i.Online); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const createTransaction = `INSERT INTO transactions (date, department, cash, online) VALUES (?, ?, ?, ?)`

type CreateTransactionParams struct {
	Date       string
	Department string
	Cash       string
	Online     string
}

func (q *Queries) CreateTransaction(ctx context.Context, arg CreateTransactionParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, createTransaction, arg.Date, arg.Department, arg.Cash, arg.Online)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

const listBankAccounts = `SELECT id, bank_details, ifsc_code, upi_ids, account_holder_name, main_purpose,
       current_balance, account_number, last_updated_date, last_updated_time
FROM bank_accounts ORDER BY id`

func (q *Queries) ListBankAccounts(ctx context.Context) ([]BankAccount, error) {
	rows, err := q.db.QueryContext(ctx, listBankAccounts)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []BankAccount
	for rows.Next() {
		var i BankAccount
		if err := rows.Scan(
			&i.ID,
			&i.BankDetails,
			&i.IfscCode,
			&i.UpiIds,
			&i.AccountHolderName,
			&i.MainPurpose,
			&i.CurrentBalance,
			&i.AccountNumber,
			&i.LastUpdatedDate,
			&i.LastUpdatedTime,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const createBankAccount = `INSERT INTO bank_accounts (
    bank_details, ifsc_code, upi_ids, account_holder_name, main_purpose,
    current_balance, account_number, last_updated_date, last_updated_time
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

type CreateBankAccountParams struct {
	BankDetails       string
	IfscCode          string
	UpiIds            string
	AccountHolderName string
	MainPurpose       string
	CurrentBalance    string
	AccountNumber     string
	LastUpdatedDate   string
	LastUpdatedTime   string
}

func (q *Queries) CreateBankAccount(ctx context.Context, arg CreateBankAccountParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, createBankAccount,
		arg.BankDetails,
		arg.IfscCode,
		arg.UpiIds,
		arg.AccountHolderName,
		arg.MainPurpose,
		arg.CurrentBalance,
		arg.AccountNumber,
		arg.LastUpdatedDate,
		arg.LastUpdatedTime,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

const countTransactions = `SELECT COUNT(*) FROM transactions`

func (q *Queries) CountTransactions(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countTransactions).Scan(&n)
	return n, err
}
