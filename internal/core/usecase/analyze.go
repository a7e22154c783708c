package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/git-guard/internal/core/domain"
	"github.com/kirillkom/git-guard/internal/core/ports"
)

const (
	// Serialized diffs and retrieved context are capped before prompting so a
	// large change set cannot blow up the completion payload.
	promptDiffCharBudget = 3000

	suggestionOptionCount = 3
)

// AnalyzeCommitUseCase reviews the staged change set: it assembles retrieval
// context per changed file, asks the completion service for a risk verdict and
// commit message options, and records the outcome best-effort.
type AnalyzeCommitUseCase struct {
	changes   ports.ChangeSource
	assembler *ContextAssembler
	completer ports.CompletionService
	reports   ports.ReportStore
	logger    *slog.Logger

	templateFormat string
	customRules    string
}

func NewAnalyzeCommitUseCase(
	changes ports.ChangeSource,
	assembler *ContextAssembler,
	completer ports.CompletionService,
	reports ports.ReportStore,
	logger *slog.Logger,
	templateFormat, customRules string,
) *AnalyzeCommitUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	if templateFormat == "" {
		templateFormat = "Standard"
	}
	return &AnalyzeCommitUseCase{
		changes:        changes,
		assembler:      assembler,
		completer:      completer,
		reports:        reports,
		logger:         logger,
		templateFormat: templateFormat,
		customRules:    customRules,
	}
}

// Analyze produces a suggestion for the draft commit message. Retrieval and
// reporting degrade silently; only a missing change set or a failed completion
// call surface as errors, since without them there is nothing to suggest.
func (uc *AnalyzeCommitUseCase) Analyze(ctx context.Context, draftMessage string) (domain.Suggestion, error) {
	draftMessage = strings.TrimSpace(draftMessage)
	if draftMessage == "" {
		return domain.Suggestion{}, domain.WrapError(domain.ErrInvalidInput, "analyze commit", fmt.Errorf("empty draft message"))
	}

	changed, err := uc.changes.StagedChanges(ctx)
	if err != nil {
		return domain.Suggestion{}, fmt.Errorf("collect staged changes: %w", err)
	}
	if len(changed) == 0 {
		return domain.Suggestion{}, domain.WrapError(domain.ErrInvalidInput, "analyze commit", fmt.Errorf("no staged changes"))
	}

	contextStr := uc.assembler.AssembleContext(ctx, changed)

	prompt := buildReviewPrompt(draftMessage, changed, contextStr, uc.templateFormat, uc.customRules)
	raw, err := uc.completer.Complete(ctx, prompt)
	if err != nil {
		return domain.Suggestion{}, fmt.Errorf("generate suggestion: %w", err)
	}

	suggestion := parseSuggestion(raw, draftMessage)
	uc.reportOutcome(ctx, draftMessage, suggestion)
	return suggestion, nil
}

func (uc *AnalyzeCommitUseCase) reportOutcome(ctx context.Context, message string, suggestion domain.Suggestion) {
	if uc.reports == nil {
		return
	}
	report := &domain.AnalysisReport{
		ID:            uuid.NewString(),
		DeveloperID:   developerID(),
		RepoName:      uc.changes.RepoName(),
		CommitMessage: message,
		RiskLevel:     suggestion.Risk,
		Summary:       suggestion.Summary,
		CreatedAt:     time.Now().UTC(),
	}
	if err := uc.reports.Create(ctx, report); err != nil {
		uc.logger.Warn("analysis report not recorded", "error", err)
	}
}

func buildReviewPrompt(draft string, changed []domain.ChangedFile, contextStr, templateFormat, customRules string) string {
	diffs := make([]string, 0, len(changed))
	for _, c := range changed {
		diffs = append(diffs, c.Diff)
	}
	serialized := strings.Join(diffs, "\n")
	if len(serialized) > promptDiffCharBudget {
		serialized = serialized[:promptDiffCharBudget]
	}
	if customRules == "" {
		customRules = "None"
	}

	var b strings.Builder
	b.WriteString("Role: Code Reviewer & Commit Message Generator.\n\n")
	fmt.Fprintf(&b, "User Draft: %q\n\n", draft)
	fmt.Fprintf(&b, "Code Changes:\n%s\n\n", serialized)
	fmt.Fprintf(&b, "Knowledge Context:\n%s\n\n", contextStr)
	b.WriteString(">>> RULES <<<\n")
	fmt.Fprintf(&b, "Template: %q\n", templateFormat)
	fmt.Fprintf(&b, "Instructions: %q\n", customRules)
	b.WriteString(">>> END RULES <<<\n\n")
	b.WriteString("STRICT OUTPUT FORMAT:\n")
	b.WriteString("RISK: <High/Medium/Low>\n")
	b.WriteString("SUMMARY: <Summary>\n")
	b.WriteString("OPTIONS: <Msg1>|||<Msg2>|||<Msg3>\n\n")
	b.WriteString("Example:\nOPTIONS: [Backend] fix login|||fix: auth bug|||refactor: login\n")
	return b.String()
}

var optionPrefixPattern = regexp.MustCompile(`^[\d\-.\s]+`)

// parseSuggestion extracts the RISK/SUMMARY/OPTIONS lines from the completion
// output, tolerating list prefixes and missing options. The result always has
// exactly three options; gaps are padded from the draft message.
func parseSuggestion(raw, draft string) domain.Suggestion {
	suggestion := domain.Suggestion{
		Risk:    domain.RiskMedium,
		Summary: "Update",
	}

	var options []string
	for _, line := range strings.Split(raw, "\n") {
		switch {
		case strings.HasPrefix(line, "RISK:"):
			suggestion.Risk = parseRisk(strings.TrimSpace(strings.TrimPrefix(line, "RISK:")))
		case strings.HasPrefix(line, "SUMMARY:"):
			if summary := strings.TrimSpace(strings.TrimPrefix(line, "SUMMARY:")); summary != "" {
				suggestion.Summary = summary
			}
		case strings.Contains(line, "OPTIONS:"):
			_, rest, _ := strings.Cut(line, "OPTIONS:")
			for _, part := range strings.Split(rest, "|||") {
				if part = strings.TrimSpace(part); part != "" {
					options = append(options, part)
				}
			}
		}
	}

	cleaned := make([]string, 0, suggestionOptionCount)
	for _, opt := range options {
		opt = optionPrefixPattern.ReplaceAllString(opt, "")
		opt = strings.TrimSpace(strings.ReplaceAll(opt, "OPTIONS:", ""))
		if len(opt) > 3 {
			cleaned = append(cleaned, opt)
		}
	}
	for len(cleaned) < suggestionOptionCount {
		cleaned = append(cleaned, "refactor: "+draft)
	}
	suggestion.Options = cleaned[:suggestionOptionCount]
	return suggestion
}

func parseRisk(s string) domain.RiskLevel {
	switch strings.ToLower(s) {
	case "high":
		return domain.RiskHigh
	case "low":
		return domain.RiskLow
	default:
		return domain.RiskMedium
	}
}

func developerID() string {
	for _, key := range []string{"GUARD_DEVELOPER_ID", "USER", "USERNAME"} {
		if v := os.Getenv(key); v != "" {
			return v
		}
	}
	return "Unknown"
}
