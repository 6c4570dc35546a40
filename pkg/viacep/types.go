package viacep

// Address is a normalized ViaCEP record. CepNumber holds the bare 8-digit
// code with the upstream hyphen stripped.
type Address struct {
	CepNumber   string `json:"cep"`
	Logradouro  string `json:"logradouro"`
	Complemento string `json:"complemento"`
	Bairro      string `json:"bairro"`
	Localidade  string `json:"localidade"`
	UF          string `json:"uf"`
	IBGE        int    `json:"ibge"`
	GIA         string `json:"gia"`
}

// Outcome classifies a lookup. A confirmed miss (upstream answered "erro" or
// a non-2xx status) is distinct from a transport failure, so callers can
// decide whether the two should be collapsed.
type Outcome int

const (
	// OutcomeFound means the upstream returned a usable record.
	OutcomeFound Outcome = iota
	// OutcomeNotFound means the upstream confirmed the code does not exist.
	OutcomeNotFound
	// OutcomeFailed means the request never produced an answer: transport
	// error, timeout, or an undecodable body.
	OutcomeFailed
	// OutcomeMalformed means the upstream answered but a field failed to
	// parse; the record is not usable as-is.
	OutcomeMalformed
)

// String returns a short label for logging.
func (o Outcome) String() string {
	switch o {
	case OutcomeFound:
		return "found"
	case OutcomeNotFound:
		return "not_found"
	case OutcomeFailed:
		return "failed"
	case OutcomeMalformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// Result is the typed outcome of a single lookup. Address is set only when
// Outcome is OutcomeFound; Err carries the underlying cause for
// OutcomeFailed and OutcomeMalformed.
type Result struct {
	Outcome Outcome
	Address *Address
	Err     error
}
