package models

// PromptDefinition is one entry of the static prompt catalog.
type PromptDefinition struct {
	ID       string `json:"id"`
	Category string `json:"category"`
	Question string `json:"question"`
}

// PromptCatalog is the fixed set of profile prompts users can answer.
var PromptCatalog = []PromptDefinition{
	{ID: "1", Category: "The Basics", Question: "A fun fact about me..."},
	{ID: "2", Category: "The Basics", Question: "I'm looking for..."},
	{ID: "3", Category: "The Basics", Question: "My perfect weekend looks like..."},
	{ID: "4", Category: "Lifestyle", Question: "My travel bucket list includes..."},
	{ID: "5", Category: "Lifestyle", Question: "I feel most alive when..."},
	{ID: "6", Category: "Lifestyle", Question: "My guilty pleasure is..."},
	{ID: "7", Category: "Lifestyle", Question: "I can't live without..."},
	{ID: "8", Category: "The Arrangement", Question: "I show appreciation by..."},
	{ID: "9", Category: "The Arrangement", Question: "Generosity means..."},
	{ID: "10", Category: "The Arrangement", Question: "My love language is..."},
	{ID: "11", Category: "The Arrangement", Question: "I spoil by..."},
	{ID: "12", Category: "The Basics", Question: "My ideal first date..."},
	{ID: "13", Category: "Lifestyle", Question: "I'm passionate about..."},
	{ID: "14", Category: "Lifestyle", Question: "My favorite luxury is..."},
	{ID: "15", Category: "The Arrangement", Question: "What I value most in a connection..."},
}
