package account

// ChartTemplate describes one account of a seeded chart. ParentCode refers
// to an earlier template in the same chart.
type ChartTemplate struct {
	Code        string
	Name        string
	Type        Type
	ParentCode  string
	Description string
}

// DefaultChart is the system chart created for a new tenant. Seeded accounts
// are system-protected.
func DefaultChart() []ChartTemplate {
	return []ChartTemplate{
		{Code: "1000", Name: "Assets", Type: TypeAsset},
		{Code: "1010", Name: "Cash", Type: TypeAsset, ParentCode: "1000", Description: "Bank and cash on hand"},
		{Code: "1100", Name: "Accounts Receivable", Type: TypeAsset, ParentCode: "1000"},
		{Code: "1200", Name: "GST Receivable", Type: TypeAsset, ParentCode: "1000", Description: "Input tax credits"},
		{Code: "2000", Name: "Liabilities", Type: TypeLiability},
		{Code: "2010", Name: "Accounts Payable", Type: TypeLiability, ParentCode: "2000"},
		{Code: "2100", Name: "GST Payable", Type: TypeLiability, ParentCode: "2000", Description: "Output tax collected"},
		{Code: "3000", Name: "Equity", Type: TypeEquity},
		{Code: "3010", Name: "Owner's Capital", Type: TypeEquity, ParentCode: "3000"},
		{Code: "3900", Name: "Retained Earnings", Type: TypeEquity, ParentCode: "3000"},
		{Code: "4000", Name: "Revenue", Type: TypeIncome},
		{Code: "4010", Name: "Sales Revenue", Type: TypeIncome, ParentCode: "4000"},
		{Code: "5000", Name: "Expenses", Type: TypeExpense},
		{Code: "5010", Name: "Operating Expenses", Type: TypeExpense, ParentCode: "5000"},
		{Code: "5020", Name: "Cost of Goods Sold", Type: TypeExpense, ParentCode: "5000"},
	}
}
