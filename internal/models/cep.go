package models

// CEP is an address record keyed by the 8-digit postal code. Records come
// either from user-submitted inserts or from a ViaCEP lookup; ID is assigned
// by the database and stays zero for records that were never persisted.
type CEP struct {
	ID          int    `db:"id" json:"id"`
	CepNumber   string `db:"cep" json:"cep"`
	Logradouro  string `db:"logradouro" json:"logradouro"`
	Complemento string `db:"complemento" json:"complemento"`
	Bairro      string `db:"bairro" json:"bairro"`
	Localidade  string `db:"localidade" json:"localidade"`
	UF          string `db:"uf" json:"uf"`
	Unidade     int64  `db:"unidade" json:"unidade"`
	IBGE        int    `db:"ibge" json:"ibge"`
	GIA         string `db:"gia" json:"gia"`
}

// QueryResult is the structured outcome of an insert attempt. Exactly one of
// the flags is meaningful: Exists carries the record already stored under the
// same code, Success carries the record just inserted, and Errors holds
// human-readable messages when neither applies.
type QueryResult struct {
	Exists  bool     `json:"exists,omitempty"`
	Success bool     `json:"success,omitempty"`
	Source  string   `json:"source,omitempty"`
	Data    *CEP     `json:"data,omitempty"`
	Errors  []string `json:"errors,omitempty"`
}

// PaginatedList wraps one page of items together with totals. Page is
// 1-based; callers clamp it to at least 1 before building the list.
type PaginatedList[T any] struct {
	Items      []T `json:"items"`
	TotalCount int `json:"totalCount"`
	Page       int `json:"page"`
	PageSize   int `json:"pageSize"`
	TotalPages int `json:"totalPages"`
}

// NewPaginatedList builds a PaginatedList, deriving TotalPages as
// ceil(totalCount / pageSize).
func NewPaginatedList[T any](items []T, totalCount, page, pageSize int) PaginatedList[T] {
	if page < 1 {
		page = 1
	}
	totalPages := 0
	if pageSize > 0 {
		totalPages = (totalCount + pageSize - 1) / pageSize
	}
	if items == nil {
		items = []T{}
	}
	return PaginatedList[T]{
		Items:      items,
		TotalCount: totalCount,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}
}
