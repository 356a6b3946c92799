package db

// TemplateEntry seeds one progress item during tracker initialization.
type TemplateEntry struct {
	Title         string
	Description   string
	Priority      string
	EstimatedDays int
	IsRequired    bool
}

// DefaultTaskTemplate is the onboarding checklist seeded per settlement
// country when a user initializes their tasks.
var DefaultTaskTemplate = []TemplateEntry{
	{Title: "Obtain Visa/Permit", Description: "Apply for and obtain the necessary visa or residence permit", Priority: "high", EstimatedDays: 30, IsRequired: true},
	{Title: "Register with Local Authorities", Description: "Register your address with local government offices", Priority: "high", EstimatedDays: 7, IsRequired: true},
	{Title: "Open Bank Account", Description: "Open a local bank account for financial transactions", Priority: "medium", EstimatedDays: 14, IsRequired: true},
	{Title: "Get Health Insurance", Description: "Obtain health insurance coverage", Priority: "high", EstimatedDays: 7, IsRequired: true},
	{Title: "Find Housing", Description: "Secure permanent accommodation", Priority: "high", EstimatedDays: 30, IsRequired: true},
	{Title: "Get Tax ID", Description: "Obtain tax identification number", Priority: "medium", EstimatedDays: 14, IsRequired: true},
	{Title: "Register for Utilities", Description: "Set up electricity, water, internet services", Priority: "medium", EstimatedDays: 7, IsRequired: true},
	{Title: "Learn Local Language", Description: "Enroll in language classes or self-study", Priority: "low", EstimatedDays: 90, IsRequired: false},
}

// DefaultStepTemplate is the settlement-step checklist, one instance per user.
var DefaultStepTemplate = []TemplateEntry{
	{Title: "Validate Your Visa", Description: "Ensure your visa is valid and all entry requirements are met", Priority: "high", IsRequired: true},
	{Title: "Get a Local SIM Card", Description: "Purchase a local SIM card for communication and internet access", Priority: "medium", IsRequired: true},
	{Title: "Open a Bank Account", Description: "Set up a local bank account for financial transactions", Priority: "high", IsRequired: true},
	{Title: "Register with Local Authorities", Description: "Complete your registration with local government offices", Priority: "high", IsRequired: true},
	{Title: "Find Accommodation", Description: "Secure long-term housing or rental agreement", Priority: "high", IsRequired: true},
	{Title: "Set Up Healthcare", Description: "Register with local healthcare system and get insurance", Priority: "high", IsRequired: true},
}
