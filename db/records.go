package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/RaghavSood/multiswap/swaps"
)

// ErrNotFound means no record exists for the requested id.
var ErrNotFound = errors.New("swap record not found")

const recordColumns = `id, created_at, provider_id, provider_name,
	token_in, token_in_decimals, token_out, token_out_decimals,
	amount_in, amount_out, recipient_address, source_address,
	tx_hash, provider_swap_id, from_asset, to_asset, deposit_address, status`

// InsertSwapRecord persists a new swap attempt. A missing ID is filled in
// with a fresh UUID; the stored record is returned.
func (s *Store) InsertSwapRecord(ctx context.Context, rec swaps.SwapRecord) (swaps.SwapRecord, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	if rec.Status == "" {
		rec.Status = swaps.StatusDepositing
	}

	var amountOut sql.NullString
	if rec.AmountOut != nil {
		amountOut = sql.NullString{String: rec.AmountOut.String(), Valid: true}
	}

	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO swap_records (
			id, created_at, provider_id, provider_name,
			token_in, token_in_decimals, token_out, token_out_decimals,
			amount_in, amount_out, recipient_address, source_address,
			tx_hash, provider_swap_id, from_asset, to_asset, deposit_address, status
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.CreatedAt, rec.ProviderID, rec.ProviderName,
		rec.TokenIn.String(), rec.TokenIn.Decimals, rec.TokenOut.String(), rec.TokenOut.Decimals,
		rec.AmountIn.String(), amountOut, rec.RecipientAddress, rec.SourceAddress,
		rec.TxHash, rec.ProviderSwapID, rec.FromAsset, rec.ToAsset, rec.DepositAddress, string(rec.Status),
	)
	if err != nil {
		return swaps.SwapRecord{}, fmt.Errorf("inserting swap record: %w", err)
	}

	return rec, nil
}

// GetAllSwapRecords returns every recorded attempt, newest first.
func (s *Store) GetAllSwapRecords(ctx context.Context) ([]swaps.SwapRecord, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM swap_records ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("querying swap records: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// GetPendingSwapRecords returns records that have not reached a terminal
// status, oldest first so long-running swaps are polled first.
func (s *Store) GetPendingSwapRecords(ctx context.Context) ([]swaps.SwapRecord, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM swap_records
		 WHERE status NOT IN (?, ?, ?)
		 ORDER BY created_at, id`,
		string(swaps.StatusCompleted), string(swaps.StatusRefunded), string(swaps.StatusFailed))
	if err != nil {
		return nil, fmt.Errorf("querying pending swap records: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// GetSwapRecord returns a single record by id.
func (s *Store) GetSwapRecord(ctx context.Context, id string) (swaps.SwapRecord, error) {
	row := s.conn.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM swap_records WHERE id = ?`, id)

	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return swaps.SwapRecord{}, fmt.Errorf("swap record %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return swaps.SwapRecord{}, fmt.Errorf("querying swap record %s: %w", id, err)
	}
	return rec, nil
}

// UpdateSwapStatus sets a record's status.
func (s *Store) UpdateSwapStatus(ctx context.Context, id string, status swaps.SwapStatus) error {
	_, err := s.conn.ExecContext(ctx,
		`UPDATE swap_records SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return fmt.Errorf("updating swap record %s: %w", id, err)
	}
	return nil
}

// UpdateSwapStatusAndAmountOut sets status and the learned output amount
// in one statement.
func (s *Store) UpdateSwapStatusAndAmountOut(ctx context.Context, id string, status swaps.SwapStatus, amountOut decimal.Decimal) error {
	_, err := s.conn.ExecContext(ctx,
		`UPDATE swap_records SET status = ?, amount_out = ? WHERE id = ?`,
		string(status), amountOut.String(), id)
	if err != nil {
		return fmt.Errorf("updating swap record %s: %w", id, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecords(rows *sql.Rows) ([]swaps.SwapRecord, error) {
	var records []swaps.SwapRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning swap record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func scanRecord(row rowScanner) (swaps.SwapRecord, error) {
	var (
		rec               swaps.SwapRecord
		tokenIn, tokenOut string
		inDec, outDec     int32
		amountIn          string
		amountOut         sql.NullString
		status            string
	)

	err := row.Scan(
		&rec.ID, &rec.CreatedAt, &rec.ProviderID, &rec.ProviderName,
		&tokenIn, &inDec, &tokenOut, &outDec,
		&amountIn, &amountOut, &rec.RecipientAddress, &rec.SourceAddress,
		&rec.TxHash, &rec.ProviderSwapID, &rec.FromAsset, &rec.ToAsset, &rec.DepositAddress, &status,
	)
	if err != nil {
		return swaps.SwapRecord{}, err
	}

	if rec.TokenIn, err = swaps.ParseTokenRef(tokenIn, inDec); err != nil {
		return swaps.SwapRecord{}, err
	}
	if rec.TokenOut, err = swaps.ParseTokenRef(tokenOut, outDec); err != nil {
		return swaps.SwapRecord{}, err
	}
	if rec.AmountIn, err = decimal.NewFromString(amountIn); err != nil {
		return swaps.SwapRecord{}, fmt.Errorf("parsing amount_in: %w", err)
	}
	if amountOut.Valid {
		out, err := decimal.NewFromString(amountOut.String)
		if err != nil {
			return swaps.SwapRecord{}, fmt.Errorf("parsing amount_out: %w", err)
		}
		rec.AmountOut = &out
	}
	rec.Status = swaps.SwapStatus(status)

	return rec, nil
}
