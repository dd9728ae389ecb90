package categories

// DefaultCategory describes one entry of the onboarding catalog.
type DefaultCategory struct {
	Name  string
	Icon  string
	Color string
	Type  TransactionType
}

// defaultCatalog is the fixed set instantiated once per new user. Order is
// stable so the onboarding screen always lists groups the same way.
var defaultCatalog = []DefaultCategory{
	{Name: "Salário", Icon: "💼", Color: "#10b981", Type: TypeIncome},
	{Name: "Freelance", Icon: "💻", Color: "#3b82f6", Type: TypeIncome},
	{Name: "Investimentos", Icon: "📈", Color: "#8b5cf6", Type: TypeIncome},
	{Name: "Outros", Icon: "💵", Color: "#06b6d4", Type: TypeIncome},

	{Name: "Alimentação", Icon: "🍔", Color: "#ef4444", Type: TypeExpense},
	{Name: "Transporte", Icon: "🚗", Color: "#f59e0b", Type: TypeExpense},
	{Name: "Moradia", Icon: "🏠", Color: "#ec4899", Type: TypeExpense},
	{Name: "Saúde", Icon: "💊", Color: "#14b8a6", Type: TypeExpense},
	{Name: "Educação", Icon: "📚", Color: "#6366f1", Type: TypeExpense},
	{Name: "Lazer", Icon: "🎮", Color: "#a855f7", Type: TypeExpense},
	{Name: "Compras", Icon: "🛍️", Color: "#f43f5e", Type: TypeExpense},
	{Name: "Contas", Icon: "📄", Color: "#84cc16", Type: TypeExpense},

	{Name: "Ações", Icon: "📊", Color: "#2563eb", Type: TypeInvestment},
	{Name: "Renda Fixa", Icon: "🏦", Color: "#059669", Type: TypeInvestment},
	{Name: "Fundos", Icon: "💼", Color: "#7c3aed", Type: TypeInvestment},
	{Name: "Cripto", Icon: "₿", Color: "#f97316", Type: TypeInvestment},

	{Name: "Transferência", Icon: "💸", Color: "#6366f1", Type: TypeTransfer},
}

// Defaults returns the onboarding catalog. Callers must not mutate it.
func Defaults() []DefaultCategory {
	return defaultCatalog
}
