package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/consultacep/cep-api/internal/models"
)

// CepRepository handles database operations for CEP records. It is a thin
// translation layer: one parameterized statement per call, no retries, no
// multi-statement transactions, and execution faults propagate unchanged.
type CepRepository struct {
	db *sqlx.DB
}

// NewCepRepository creates a new CepRepository.
func NewCepRepository(db *sqlx.DB) *CepRepository {
	return &CepRepository{db: db}
}

// GetByCEP returns the record for an exact postal code, or nil when no row
// matches.
func (r *CepRepository) GetByCEP(ctx context.Context, cep string) (*models.CEP, error) {
	query := `SELECT id, cep, logradouro, complemento, bairro, localidade, uf, unidade, ibge, gia
	          FROM ceps WHERE cep = $1 LIMIT 1`

	var record models.CEP
	if err := r.db.GetContext(ctx, &record, query, cep); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

// GetByUF returns all records for a federative unit. A nil slice means no
// rows matched; callers normalize that to an empty sequence.
func (r *CepRepository) GetByUF(ctx context.Context, uf string) ([]models.CEP, error) {
	query := `SELECT id, cep, logradouro, complemento, bairro, localidade, uf, unidade, ibge, gia
	          FROM ceps WHERE uf = $1 ORDER BY id`

	var records []models.CEP
	if err := r.db.SelectContext(ctx, &records, query, uf); err != nil {
		return nil, err
	}
	return records, nil
}

// GetByUFPaged returns one page of records for a federative unit, ordered by
// id ascending for stable pagination. page is 1-based.
func (r *CepRepository) GetByUFPaged(ctx context.Context, uf string, page, pageSize int) ([]models.CEP, error) {
	query := `SELECT id, cep, logradouro, complemento, bairro, localidade, uf, unidade, ibge, gia
	          FROM ceps WHERE uf = $1 ORDER BY id OFFSET $2 LIMIT $3`

	offset := (page - 1) * pageSize

	var records []models.CEP
	if err := r.db.SelectContext(ctx, &records, query, uf, offset, pageSize); err != nil {
		return nil, err
	}
	return records, nil
}

// CountByUF returns the total number of records for a federative unit.
func (r *CepRepository) CountByUF(ctx context.Context, uf string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(id) FROM ceps WHERE uf = $1`, uf).Scan(&count)
	return count, err
}

// Insert stores a new record and reports whether exactly one row was
// affected. The generated id is written back into cep.
func (r *CepRepository) Insert(ctx context.Context, cep *models.CEP) (bool, error) {
	query := `INSERT INTO ceps (cep, logradouro, complemento, bairro, localidade, uf, unidade, ibge, gia)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	          RETURNING id`

	err := r.db.QueryRowContext(ctx, query,
		cep.CepNumber, cep.Logradouro, cep.Complemento, cep.Bairro,
		cep.Localidade, cep.UF, cep.Unidade, cep.IBGE, cep.GIA,
	).Scan(&cep.ID)
	if err != nil {
		return false, err
	}
	return true, nil
}

// Update rewrites a record matched by surrogate id and reports whether
// exactly one row was affected.
func (r *CepRepository) Update(ctx context.Context, cep *models.CEP) (bool, error) {
	query := `UPDATE ceps SET
	              cep = $1, logradouro = $2, complemento = $3, bairro = $4,
	              localidade = $5, uf = $6, unidade = $7, ibge = $8, gia = $9
	          WHERE id = $10`

	res, err := r.db.ExecContext(ctx, query,
		cep.CepNumber, cep.Logradouro, cep.Complemento, cep.Bairro,
		cep.Localidade, cep.UF, cep.Unidade, cep.IBGE, cep.GIA, cep.ID,
	)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}

// Delete removes a record by surrogate id and reports whether exactly one
// row was affected.
func (r *CepRepository) Delete(ctx context.Context, id int) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM ceps WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}
