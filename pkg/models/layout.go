package models

// Layout describes file naming inside the lake and how each stream reacts to
// undecodable input.
type Layout struct {
	ErasureFile      string        `json:"erasureFile" yaml:"erasureFile"`
	CustomersFile    string        `json:"customersFile" yaml:"customersFile"`
	ProductsFile     string        `json:"productsFile" yaml:"productsFile"`
	TransactionsFile string        `json:"transactionsFile" yaml:"transactionsFile"`
	DatePrefix       string        `json:"datePrefix" yaml:"datePrefix"`
	HourPrefix       string        `json:"hourPrefix" yaml:"hourPrefix"`
	Recover          RecoverPolicy `json:"recover" yaml:"recover"`
}

// RecoverPolicy selects, per stream, whether a parse failure is logged and
// ends that file (true) or aborts the whole run (false).
type RecoverPolicy struct {
	Erasure      bool `json:"erasure" yaml:"erasure"`
	Products     bool `json:"products" yaml:"products"`
	Customers    bool `json:"customers" yaml:"customers"`
	Transactions bool `json:"transactions" yaml:"transactions"`
}

func DefaultLayout() Layout {
	return Layout{
		ErasureFile:      "erasure-requests.json.gz",
		CustomersFile:    "customers.json.gz",
		ProductsFile:     "products.json.gz",
		TransactionsFile: "transactions.json.gz",
		DatePrefix:       "date=",
		HourPrefix:       "hour=",
		Recover: RecoverPolicy{
			Customers:    true,
			Transactions: true,
		},
	}
}

// WithDefaults fills empty names from DefaultLayout. Recover flags are kept
// as given.
func (l Layout) WithDefaults() Layout {
	d := DefaultLayout()
	if l.ErasureFile == "" {
		l.ErasureFile = d.ErasureFile
	}
	if l.CustomersFile == "" {
		l.CustomersFile = d.CustomersFile
	}
	if l.ProductsFile == "" {
		l.ProductsFile = d.ProductsFile
	}
	if l.TransactionsFile == "" {
		l.TransactionsFile = d.TransactionsFile
	}
	if l.DatePrefix == "" {
		l.DatePrefix = d.DatePrefix
	}
	if l.HourPrefix == "" {
		l.HourPrefix = d.HourPrefix
	}
	return l
}
