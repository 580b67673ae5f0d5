package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spigell/hr-matcher/internal/ai"
	"github.com/spigell/hr-matcher/internal/extract"
	"github.com/spigell/hr-matcher/internal/recruit"
	"github.com/spigell/hr-matcher/internal/report"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	PromptShowRanking      = "Show ranking"
	PromptBrowseCandidates = "Browse candidates"
	PromptSaveReport       = "Save xlsx report"
	PromptExit             = "Exit"
	PromptBack             = "back"

	outputTable = "table"
	outputJSON  = "json"
)

var errExit = errors.New("exit requested")

var matchPrompt = promptui.Select{
	Label: "What next?",
	Items: []string{PromptShowRanking, PromptBrowseCandidates, PromptSaveReport, PromptExit},
}

var matchCmd = &cobra.Command{
	Use:   "match --job JOB_FILE RESUME [RESUME...]",
	Short: "Rank resume files against a job description",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		match(cmd, args)
	},
}

func init() {
	rootCmd.AddCommand(matchCmd)

	matchCmd.Flags().String("job", "", "job description file (.txt, .md, .pdf, .docx, .doc)")
	matchCmd.Flags().String("job-text", "", "job description text, used when --job is not set")
	matchCmd.Flags().StringP("output", "o", outputTable, "output format: table or json")
	matchCmd.Flags().String("xlsx", "", "write an Excel report to this path")
	matchCmd.Flags().BoolP("interactive", "i", false, "browse the ranked candidates interactively")
	matchCmd.Flags().Bool("no-emails", false, "do not draft candidate emails")
}

func match(cmd *cobra.Command, args []string) {
	ctx := context.Background()

	output, _ := cmd.Flags().GetString("output")
	output = strings.ToLower(strings.TrimSpace(output))
	if output != outputTable && output != outputJSON {
		log.Fatalf("unsupported output format %q", output)
	}

	// Keep stdout clean for the JSON document.
	sink := "stdout"
	if output == outputJSON {
		sink = "stderr"
	}

	logger, err := newLogger(sink)
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}
	defer logger.Sync()

	if noEmails, _ := cmd.Flags().GetBool("no-emails"); noEmails {
		viper.Set("emails.enabled", false)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config, "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	c, err := buildComponents(ctx, config, logger)
	if err != nil {
		logger.Fatal("building components", zap.Error(err))
	}

	jobFile, _ := cmd.Flags().GetString("job")
	jobText, _ := cmd.Flags().GetString("job-text")
	if jobFile != "" {
		jobText, err = readDocument(ctx, c.extractor, jobFile)
		if err != nil {
			logger.Fatal("reading job description", zap.Error(err))
		}
	}

	candidates := make([]ai.Candidate, 0, len(args))
	for _, path := range args {
		text, err := readDocument(ctx, c.extractor, path)
		if err != nil {
			logger.Fatal("reading resume", zap.Error(err))
		}
		candidates = append(candidates, ai.Candidate{Filename: filepath.Base(path), Text: text})
	}

	result, err := c.service.Match(ctx, jobText, candidates)
	if err != nil {
		logger.Fatal("matching candidates", zap.Error(err), zap.String("hint", "pass --job or --job-text"))
	}

	if xlsx, _ := cmd.Flags().GetString("xlsx"); xlsx != "" {
		if err := saveReport(logger, xlsx, result); err != nil {
			logger.Fatal("saving report", zap.Error(err))
		}
	}

	if output == outputJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			logger.Fatal("encoding result", zap.Error(err))
		}
		return
	}

	if err := printRanking(os.Stdout, result); err != nil {
		logger.Fatal("printing ranking", zap.Error(err))
	}

	if interactive, _ := cmd.Flags().GetBool("interactive"); !interactive {
		return
	}

	for {
		_, action, err := matchPrompt.Run()
		if err != nil {
			logger.Fatal("exiting", zap.Error(err))
		}

		if err := handleMatchAction(action, logger, result); err != nil {
			if errors.Is(err, errExit) {
				return
			}
			logger.Fatal("exiting", zap.Error(err))
		}
	}
}

func handleMatchAction(action string, logger *zap.Logger, result *recruit.Result) error {
	switch action {
	case PromptShowRanking:
		return printRanking(os.Stdout, result)
	case PromptBrowseCandidates:
		return browseCandidates(result)
	case PromptSaveReport:
		path := fmt.Sprintf("%s-%s.xlsx", app, time.Now().Format("20060102-150405"))
		return saveReport(logger, path, result)
	case PromptExit:
		logger.Info("exiting", zap.String("reason", "got exit from prompt"))
		return errExit
	default:
		return fmt.Errorf("invalid action: %s", action)
	}
}

func browseCandidates(result *recruit.Result) error {
	items := make([]string, 0, len(result.Candidates)+1)
	for i, c := range result.Candidates {
		items = append(items, fmt.Sprintf("%d %s / %.2f / %s", i+1, c.Filename, c.Score, track(c)))
	}

	for {
		candidatePrompt := promptui.Select{
			Label: "Choose a candidate and press ENTER",
			Items: append(items, PromptBack),
			Size:  10,
		}

		_, selected, err := candidatePrompt.Run()
		if err != nil {
			return err
		}
		if selected == PromptBack {
			return nil
		}

		idx, err := strconv.Atoi(strings.Split(selected, " ")[0])
		if err != nil || idx < 1 || idx > len(result.Candidates) {
			return fmt.Errorf("there is no such candidate %q", selected)
		}

		printCandidate(os.Stdout, result.Candidates[idx-1])
	}
}

func readDocument(ctx context.Context, extractor *extract.Extractor, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return extractor.Text(ctx, data, filepath.Base(path)), nil
}

func saveReport(logger *zap.Logger, path string, result *recruit.Result) error {
	saved, err := report.Save(path, result, time.Now())
	if err != nil {
		return err
	}
	logger.Info("report saved", zap.String("filename", saved))
	return nil
}

func printRanking(w io.Writer, result *recruit.Result) error {
	fmt.Fprintf(w, "%s at %s\n", result.JobTitle, result.CompanyName)
	fmt.Fprintf(w, "required skills: %s\n\n", joinOrDash(result.RequiredSkills))

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tFILENAME\tSCORE\tTRACK\tMISSING\tREMARKS")
	for i, c := range result.Candidates {
		marker := ""
		if i == result.BestIndex {
			marker = " *"
		}
		fmt.Fprintf(tw, "%d%s\t%s\t%.2f\t%s\t%s\t%s\n",
			i+1, marker, c.Filename, c.Score, track(c), joinOrDash(c.MissingSkills), c.Remarks)
	}
	return tw.Flush()
}

func printCandidate(w io.Writer, c recruit.CandidateResult) {
	fmt.Fprintf(w, "\n%s (%.2f, %s)\n", c.Filename, c.Score, track(c))
	fmt.Fprintf(w, "missing: %s\n", joinOrDash(c.MissingSkills))
	fmt.Fprintf(w, "remarks: %s\n", c.Remarks)
	if c.Email != nil {
		fmt.Fprintf(w, "\nSubject: %s\n\n%s\n\n", c.Email.Subject, c.Email.Body)
	}
}

func track(c recruit.CandidateResult) string {
	if c.IsSelected {
		return "interview"
	}
	return "rejection"
}

func joinOrDash(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ", ")
}
