package observability

// Metric names
const (
	TransactionsInitiatedTotal = "sacco.transactions.initiated.total"
	TransactionsSettledTotal   = "sacco.transactions.settled.total"
	LoanTransitionsTotal       = "sacco.loans.transitions.total"
	GuarantorResponsesTotal    = "sacco.guarantors.responses.total"
	GuarantorsExpiredTotal     = "sacco.guarantors.expired.total"
	ContributionsTotal         = "sacco.contributions.total"
	InterestRunsTotal          = "sacco.interest.runs.total"
)

// Metric labels
const (
	LabelType    = "type"
	LabelPurpose = "purpose"
	LabelStatus  = "status"
)
