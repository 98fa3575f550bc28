package report

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/jdgilhuly/llmcheck/pkg/config"
	"github.com/jdgilhuly/llmcheck/pkg/params"
	"github.com/jdgilhuly/llmcheck/pkg/provider"
	"github.com/muesli/termenv"
)

// promptPreviewLen is how many characters of the system prompt are shown.
const promptPreviewLen = 50

// Summary lines ending every check.
const (
	SuccessSummary = "Connectivity check succeeded!"
	FailureSummary = "Connectivity check failed. Check the API key, model name, network connection, and config files."
)

// Category classifies a failed check.
type Category string

const (
	CategoryMissingCredential Category = "missing_credential"
	CategoryConfigNotFound    Category = "config_not_found"
	CategoryConfigParse       Category = "config_parse"
	CategoryConfigLoad        Category = "config_load"
	CategoryClientInit        Category = "client_init"
	CategoryAPIStatus         Category = "api_status"
	CategoryAPIGeneric        Category = "api_generic"
	CategoryEmptyResponse     Category = "empty_response"
	CategoryUnexpected        Category = "unexpected"
)

// Classify maps an error onto the failure taxonomy.
func Classify(err error) Category {
	var (
		mc *config.MissingCredentialError
		le *config.LoadError
		ie *provider.InitError
		se *provider.StatusError
		re *provider.RequestError
	)
	switch {
	case errors.As(err, &mc):
		return CategoryMissingCredential
	case errors.As(err, &le):
		switch le.Kind {
		case config.KindNotFound:
			return CategoryConfigNotFound
		case config.KindParse:
			return CategoryConfigParse
		default:
			return CategoryConfigLoad
		}
	case errors.As(err, &ie):
		return CategoryClientInit
	case errors.As(err, &se):
		return CategoryAPIStatus
	case errors.As(err, &re):
		return CategoryAPIGeneric
	case errors.Is(err, provider.ErrEmptyResponse):
		return CategoryEmptyResponse
	default:
		return CategoryUnexpected
	}
}

type styles struct {
	err     lipgloss.Style
	warn    lipgloss.Style
	dim     lipgloss.Style
	success lipgloss.Style
	failure lipgloss.Style
}

func newStyles(re *lipgloss.Renderer) styles {
	return styles{
		err:     re.NewStyle().Foreground(lipgloss.Color("1")),
		warn:    re.NewStyle().Foreground(lipgloss.Color("3")),
		dim:     re.NewStyle().Faint(true),
		success: re.NewStyle().Bold(true).Foreground(lipgloss.Color("2")),
		failure: re.NewStyle().Bold(true).Foreground(lipgloss.Color("1")),
	}
}

// Reporter prints check progress and outcomes.
type Reporter struct {
	w        io.Writer
	renderer *lipgloss.Renderer
	style    styles
	markdown *glamour.TermRenderer
}

// Option configures a Reporter.
type Option func(*Reporter)

// WithMarkdown renders response text as markdown wrapped at width columns.
// The plain text is printed if the renderer cannot be built.
func WithMarkdown(width int) Option {
	return func(r *Reporter) {
		if width <= 0 {
			width = 100
		}
		md, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			return
		}
		r.markdown = md
	}
}

// New returns a Reporter writing to w. Colors are only emitted when color is
// true and w is a terminal that supports them.
func New(w io.Writer, color bool, opts ...Option) *Reporter {
	re := lipgloss.NewRenderer(w)
	if !color {
		re.SetColorProfile(termenv.Ascii)
	}
	r := &Reporter{w: w, renderer: re, style: newStyles(re)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Reporter) label() string { return r.style.err.Render("Error:") }

func (r *Reporter) text(s string) string {
	if r.markdown == nil {
		return s
	}
	out, err := r.markdown.Render(s)
	if err != nil {
		return s
	}
	return strings.TrimRight(out, "\n")
}

// Abort prints the diagnostic for a failure that ends the check before any
// request is sent. Errors joined with errors.Join are reported one by one.
func (r *Reporter) Abort(err error) {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range joined.Unwrap() {
			r.Abort(e)
		}
		return
	}

	var (
		mc *config.MissingCredentialError
		le *config.LoadError
	)
	switch {
	case errors.As(err, &mc):
		fmt.Fprintf(r.w, "%s environment variable '%s' is not set.\n", r.label(), mc.Var)
		fmt.Fprintln(r.w, "Check your .env file.")
	case errors.As(err, &le):
		switch le.Kind {
		case config.KindNotFound:
			fmt.Fprintf(r.w, "%s config file not found: %s\n", r.label(), le.Path)
		case config.KindParse:
			fmt.Fprintf(r.w, "%s failed to parse YAML file: %s\n%v\n", r.label(), le.Path, le.Err)
		default:
			fmt.Fprintf(r.w, "%s unexpected error while reading config file: %s\n%v\n", r.label(), le.Path, le.Err)
		}
	default:
		fmt.Fprintf(r.w, "%s %v\n", r.label(), err)
	}
}

// Plan prints the resolved model, system prompt and parameters.
func (r *Reporter) Plan(model, system string, p params.Params) {
	fmt.Fprintf(r.w, "Model: %s\n", model)
	fmt.Fprintf(r.w, "System prompt: %s\n", Preview(system, promptPreviewLen))
	fmt.Fprintf(r.w, "Generation parameters: %s\n", p)
}

// Dispatch prints the final user message right before the request is sent.
func (r *Reporter) Dispatch(displayName, final string) {
	fmt.Fprintf(r.w, "Calling %s API...\n", displayName)
	fmt.Fprintf(r.w, "\nFinal prompt sent: %s\n", final)
}

// Pending prints the final user message of a check that stops before
// dispatch.
func (r *Reporter) Pending(final string) {
	fmt.Fprintf(r.w, "\nFinal prompt (not sent): %s\n", final)
}

// Success prints the response text, or the raw response when it has none.
func (r *Reporter) Success(displayName string, resp *provider.Response, elapsed time.Duration) {
	if resp == nil {
		resp = &provider.Response{}
	}
	fmt.Fprintf(r.w, "\n--- Response from %s ---\n", displayName)
	if resp.HasText() {
		fmt.Fprintln(r.w, r.text(resp.Content))
	} else {
		r.noText(resp)
	}
	fmt.Fprintln(r.w, "------------------------")

	line := fmt.Sprintf("Latency: %s | tokens: %d in / %d out", FormatDuration(elapsed), resp.Usage.InputTokens, resp.Usage.OutputTokens)
	if provider.KnownPricing(resp.Model) {
		line += fmt.Sprintf(" | est. $%.6f", provider.EstimateCost(resp.Model, resp.Usage))
	}
	if resp.StopReason != "" {
		line += " | stop: " + resp.StopReason
	}
	fmt.Fprintln(r.w, r.style.dim.Render(line))
	fmt.Fprintln(r.w, r.style.success.Render(SuccessSummary))
}

// Failure prints a categorized diagnostic for a failure that happened while
// creating the client or calling the API.
func (r *Reporter) Failure(displayName string, err error) {
	var (
		ie *provider.InitError
		se *provider.StatusError
		ee *provider.EmptyResponseError
	)
	label := r.label()
	switch Classify(err) {
	case CategoryClientInit:
		errors.As(err, &ie)
		fmt.Fprintf(r.w, "%s failed to initialize the %s client: %v\n", label, displayName, ie.Err)
	case CategoryAPIStatus:
		errors.As(err, &se)
		fmt.Fprintf(r.w, "\n%s %s API returned a status error: %d\n", label, displayName, se.StatusCode)
		if se.Message != "" {
			fmt.Fprintf(r.w, "Message: %s\n", se.Message)
		}
		fmt.Fprintf(r.w, "Response: %s\n", se.Body)
	case CategoryEmptyResponse:
		fmt.Fprintf(r.w, "\n%s the %s API returned no text content\n", label, displayName)
		var resp *provider.Response
		if errors.As(err, &ee) {
			resp = ee.Response
		}
		r.noText(resp)
	case CategoryAPIGeneric:
		fmt.Fprintf(r.w, "\n%s error while calling the %s API: %v\n", label, displayName, err)
	default:
		fmt.Fprintf(r.w, "\n%s unexpected error: %v\n", label, err)
	}
	fmt.Fprintln(r.w, r.style.failure.Render(FailureSummary))
}

// Preview returns the first n characters of s followed by "...".
func Preview(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s + "..."
	}
	runes := []rune(s)
	return string(runes[:n]) + "..."
}

// FormatDuration formats a duration for display.
func FormatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%dus", d.Microseconds())
	}
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

func (r *Reporter) noText(resp *provider.Response) {
	fmt.Fprintln(r.w, r.style.warn.Render("(the response contained no text content)"))
	fmt.Fprintf(r.w, "Raw response: %s\n", rawOrNone(resp))
}

func rawOrNone(resp *provider.Response) string {
	if resp == nil || len(resp.Raw) == 0 {
		return "(empty)"
	}
	return string(resp.Raw)
}
