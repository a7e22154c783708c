package zhipu

func buildRewritePrompt(query string) string {
	const maxSnippet = 2000
	snippet := query
	if len(snippet) > maxSnippet {
		snippet = snippet[:maxSnippet]
	}

	return `You rewrite informal developer queries into precise search queries
for a source code knowledge base.
Keep identifiers, file names and technical terms exactly as written.
Return only the rewritten query, one line, no explanations.

Query:
` + snippet
}
