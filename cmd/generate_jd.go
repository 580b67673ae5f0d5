package cmd

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/spigell/hr-matcher/internal/jobdesc"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var generateJDCmd = &cobra.Command{
	Use:   "generate-jd",
	Short: "Write a job description from a short brief",
	Run: func(cmd *cobra.Command, _ []string) {
		generateJD(cmd)
	},
}

func init() {
	rootCmd.AddCommand(generateJDCmd)

	generateJDCmd.Flags().String("title", "", "job title (required)")
	generateJDCmd.Flags().Int("years", 0, "years of experience")
	generateJDCmd.Flags().String("skills", "", "comma separated must-have skills")
	generateJDCmd.Flags().String("company", "", "company name")
	generateJDCmd.Flags().String("employment-type", "Full-time", "employment type")
	generateJDCmd.Flags().String("industry", "", "industry")
	generateJDCmd.Flags().String("location", "", "location")
	generateJDCmd.Flags().StringP("out", "o", "", "write the description to this file instead of stdout")

	generateJDCmd.MarkFlagRequired("title")
}

func generateJD(cmd *cobra.Command) {
	ctx := context.Background()

	out, _ := cmd.Flags().GetString("out")
	sink := "stderr"
	if out != "" {
		sink = "stdout"
	}

	logger, err := newLogger(sink)
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}
	defer logger.Sync()

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	c, err := buildComponents(ctx, config, logger)
	if err != nil {
		logger.Fatal("building components", zap.Error(err))
	}

	flags := cmd.Flags()
	req := jobdesc.Request{}
	req.JobTitle, _ = flags.GetString("title")
	req.YearsExperience, _ = flags.GetInt("years")
	req.MustHaveSkills, _ = flags.GetString("skills")
	req.CompanyName, _ = flags.GetString("company")
	req.EmploymentType, _ = flags.GetString("employment-type")
	req.Industry, _ = flags.GetString("industry")
	req.Location, _ = flags.GetString("location")

	text, err := c.writer.Generate(ctx, req)
	if err != nil {
		logger.Fatal("generating job description", zap.Error(err))
	}

	if out == "" {
		fmt.Println(text)
		return
	}

	if err := os.WriteFile(out, []byte(text+"\n"), 0o644); err != nil {
		logger.Fatal("writing job description", zap.Error(err), zap.String("filename", out))
	}
	logger.Info("job description written", zap.String("filename", out))
}
