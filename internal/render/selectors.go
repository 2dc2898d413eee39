package render

// Selector matches elements by CSS and, optionally, by a case-insensitive
// substring of their visible text.
type Selector struct {
	CSS  string
	Text string
	// Label is recorded in the interaction log when the selector is clicked.
	Label string
}

var loadMoreSelectors = []Selector{
	{CSS: "button", Text: "Load more", Label: "button:has-text('Load more')"},
	{CSS: "button", Text: "Show more", Label: "button:has-text('Show more')"},
	{CSS: "a", Text: "Load more", Label: "a:has-text('Load more')"},
	{CSS: "a", Text: "Show more", Label: "a:has-text('Show more')"},
}

var tabSelector = Selector{CSS: "[role='tab']", Label: "tab: [role='tab']"}

var nextSelectors = []Selector{
	{CSS: "a[rel='next']", Label: "a[rel='next']"},
	{CSS: "a", Text: "Next", Label: "a:has-text('Next')"},
	{CSS: "a", Text: "›", Label: "a:has-text('›')"},
	{CSS: "a", Text: ">>", Label: "a:has-text('>>')"},
	{CSS: "button", Text: "Next", Label: "button:has-text('Next')"},
}

// pageParam is the only query parameter recognized for numbered pagination.
const pageParam = "page"
