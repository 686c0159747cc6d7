package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/dkaus1/vscode-ai-ext/internal/event"
	"github.com/dkaus1/vscode-ai-ext/internal/provider"
	"github.com/dkaus1/vscode-ai-ext/internal/vcs"
	"github.com/dkaus1/vscode-ai-ext/pkg/types"
)

// ContinuePrompt is sent when a continue command carries no text.
const ContinuePrompt = "send remaining response"

// ReviewPrompt precedes each file diff in a review fan-out.
const ReviewPrompt = `Please review the following changes in the respective file and provide your code review comments with respect to any regression, functional, performance, security, accessibility and maintainability or other quality best practices. The review comments can be summerized in the form of bullet points. Please provide your comments for each file separately for easy review and review comments should start with file name prepended by string 'Review Comments for ' where file name should always be wrapped with backticks to highlight them as inline code`

// Test commands that trigger testing-library discovery.
const (
	WriteUnitTests = "writeUnitTests"
	WriteE2ETests  = "writeE2ETests"

	unitTestsKey     = "unitTests"
	endToEndTestsKey = "endToEndTests"
)

const libraryPromptFormat = `Please provide list of %[1]s for the code and below is the requirement for the response format:
 - Please indentify the language of the code and provide the list of libraries for that language only
 - if no options available for the language for which the code is provided then please don't provide any list of libraries in asked format
 - provide the options in the list separated by commas
 - Also please wrap this list in set of 4 colons like if the code is for Javascript then response should be:
"Here is the list of libraries that you can use to write %[2]s test cases: ::::'%[3]s', 'library1', 'library2', 'etc'::::
 - sort the options in the list on the bases of popularity
 - Also see if code needs any additional supporting testing libraries then add them in the list like with %[3]s we might need %[4]s
 - No example code is needed in the response and keep it very short only with options list in above requested format`

// UnitTestPrompt and E2ETestPrompt ask the provider for testing libraries.
var (
	UnitTestPrompt = fmt.Sprintf(libraryPromptFormat,
		"unit testing libraries(Not end-to-end testing libraries)", "Unit", "jest",
		"some DOM assertion options or something else which will be required for regular use cases")
	E2ETestPrompt = fmt.Sprintf(libraryPromptFormat,
		"end-to-end testing libraries", "end-to-end", "cypress",
		"some other libraries for regular use cases")
)

// ErrNoSelection is returned when a command needs selected code and got none.
var ErrNoSelection = errors.New("no selected code found for processing the command")

// ErrNoChanges is returned by Review when the work tree is clean.
var ErrNoChanges = errors.New("no changes found in the GIT repository")

var (
	libraryListPattern = regexp.MustCompile(`::::(.*?)::::`)
	libraryNamePattern = regexp.MustCompile(`'([^']*)'( \([^)]*\))?`)
)

// javascriptFamily falls back to the javascript entry of testingLibraries.
var javascriptFamily = map[string]bool{
	"typescript": true, "javascriptreact": true, "typescriptreact": true, "jsx": true, "tsx": true,
}

// InlinePrompt sends text as a single stateless request and emits
// updateInlinePromptResultSuccess.
func (o *Orchestrator) InlinePrompt(ctx context.Context, text string) (*provider.CanonicalResponse, error) {
	resp, err := o.FanOut(ctx, []string{text}, 0)
	return o.emitInline(resp, err)
}

// Review collects the working tree changes under the configured work
// directory and fans the review prompt out, one request per file with a
// non-blank diff.
func (o *Orchestrator) Review(ctx context.Context) (*provider.CanonicalResponse, error) {
	cfg := o.Config()
	opts := vcs.Options{}
	limit := 0
	if cfg.Review != nil {
		opts.Exclude = cfg.Review.Exclude
		limit = cfg.Review.Concurrency
	}

	files, err := vcs.CollectChanges(ctx, o.workDir, opts)
	if err != nil {
		return o.emitInline(nil, err)
	}
	if len(files) == 0 {
		return o.emitInline(nil, ErrNoChanges)
	}

	o.log.Info().Int("files", len(files)).Str("branch", vcs.Branch(ctx, o.workDir)).Msg("reviewing changes")
	resp, err := o.FanOut(ctx, ReviewPrompts(files), limit)
	return o.emitInline(resp, err)
}

// ReviewPrompts builds one review prompt per file whose diff is not blank.
func ReviewPrompts(files []types.ChangedFile) []string {
	prompts := make([]string, 0, len(files))
	for _, f := range files {
		if strings.TrimSpace(f.GitDiff) == "" {
			continue
		}
		prompts = append(prompts, ReviewPrompt+"\n\n"+f.GitDiff)
	}
	return prompts
}

func (o *Orchestrator) emitInline(resp *provider.CanonicalResponse, err error) (*provider.CanonicalResponse, error) {
	if err != nil {
		o.bus.PublishSync(event.Event{Type: event.UpdateResultFailed, Data: event.ResultFailedData{Data: err.Error()}})
		return nil, err
	}
	o.bus.PublishSync(event.Event{Type: event.UpdateInlinePromptResultSuccess, Data: event.ResultSuccessData{Data: resp}})
	return resp, nil
}

// FetchTestingLibraries resolves the testing libraries for a test command.
// Configured or previously stored libraries are returned without a
// provider call; otherwise the provider is asked, and the libraries it
// names are stored for the language. The result is emitted as
// testingLibraryOptions.
func (o *Orchestrator) FetchTestingLibraries(ctx context.Context, userCommand, languageID, code string) ([]string, error) {
	if strings.TrimSpace(code) == "" {
		err := ErrNoSelection
		o.bus.PublishSync(event.Event{Type: event.UpdateResultFailed, Data: event.ResultFailedData{Data: err.Error()}})
		return nil, err
	}
	testType := unitTestsKey
	prompt := UnitTestPrompt
	if userCommand == WriteE2ETests {
		testType = endToEndTestsKey
		prompt = E2ETestPrompt
	}
	languageID = o.resolveLanguage(languageID)

	libraries := o.knownLibraries(ctx, languageID, testType)
	if len(libraries) == 0 {
		o.bus.PublishSync(event.Event{Type: event.ShowLoadingState, Data: event.LoadingStateData{IsInProgress: true}})
		resp, err := o.FanOut(ctx, []string{prompt + "\n\n Below is the code:\n" + code}, 0)
		o.bus.PublishSync(event.Event{Type: event.RemoveLoadingState, Data: event.LoadingStateData{}})
		if err != nil {
			o.bus.PublishSync(event.Event{Type: event.UpdateResultFailed, Data: event.ResultFailedData{Data: err.Error()}})
			return nil, err
		}

		libraries = ParseLibraryNames(resp.Content())
		if len(libraries) > 0 {
			if err := o.storeLibraries(ctx, languageID, testType, libraries); err != nil {
				o.log.Warn().Err(err).Msg("failed to store testing libraries")
			}
		}
	}

	o.bus.PublishSync(event.Event{Type: event.TestingLibraryOptions, Data: event.TestingLibraryOptionsData{
		UserCommand: userCommand,
		LanguageID:  languageID,
		Libraries:   libraries,
	}})
	return libraries, nil
}

// ParseLibraryNames extracts the names from a "::::'a', 'b (note)'::::"
// list. Text without a list yields nil.
func ParseLibraryNames(text string) []string {
	m := libraryListPattern.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	var names []string
	for _, lib := range libraryNamePattern.FindAllString(m[1], -1) {
		names = append(names, strings.ReplaceAll(strings.TrimSpace(lib), "'", ""))
	}
	return names
}

// resolveLanguage maps javascript-family ids without their own entry to
// javascript.
func (o *Orchestrator) resolveLanguage(languageID string) string {
	if !javascriptFamily[languageID] {
		return languageID
	}
	if _, ok := o.Config().TestingLibraries[languageID]; ok {
		return languageID
	}
	return "javascript"
}

func (o *Orchestrator) knownLibraries(ctx context.Context, languageID, testType string) []string {
	if lc, ok := o.Config().TestingLibraries[languageID]; ok {
		libs := lc.UnitTests
		if testType == endToEndTestsKey {
			libs = lc.EndToEndTests
		}
		if len(libs) > 0 {
			return libs
		}
	}

	stored, err := o.storedLibraries(ctx)
	if err != nil {
		o.log.Warn().Err(err).Msg("failed to load stored testing libraries")
		return nil
	}
	return stored[languageID][testType]
}

func (o *Orchestrator) storedLibraries(ctx context.Context) (map[string]map[string][]string, error) {
	libs := map[string]map[string][]string{}
	if o.store == nil {
		return libs, nil
	}
	if !o.store.Exists(ctx, []string{o.Key(TestingLibrariesKey)}) {
		return libs, nil
	}
	if err := o.store.Get(ctx, []string{o.Key(TestingLibrariesKey)}, &libs); err != nil {
		return nil, err
	}
	return libs, nil
}

func (o *Orchestrator) storeLibraries(ctx context.Context, languageID, testType string, libraries []string) error {
	if o.store == nil {
		return nil
	}
	libs, err := o.storedLibraries(ctx)
	if err != nil {
		return err
	}
	if libs[languageID] == nil {
		libs[languageID] = map[string][]string{}
	}
	libs[languageID][testType] = libraries
	return o.store.Put(ctx, []string{o.Key(TestingLibrariesKey)}, libs)
}
