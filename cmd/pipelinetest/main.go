package main

// Run the full analysis pipeline against a local document without the API:
//   go run ./cmd/pipelinetest -doc path/to/rfp.pdf -industry healthcare

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"riskscan-backend/internal/extract"
	"riskscan-backend/internal/llm"
	openai "riskscan-backend/internal/llm/openai"
	"riskscan-backend/internal/reports"
	"riskscan-backend/internal/shared/config"
)

func main() {
	cfg := config.Load()

	docPath := flag.String("doc", "", "Path to RFP document (pdf or docx)")
	industry := flag.String("industry", "", "Industry context (optional)")
	promptVersion := flag.String("prompt-version", "v1_1", "Prompt version")
	outPath := flag.String("out", "", "Path to write result JSON (optional)")
	provider := flag.String("provider", cfg.LLMProvider, "LLM provider")
	model := flag.String("model", cfg.LLMModel, "LLM model")
	flag.Parse()

	if strings.TrimSpace(*docPath) == "" {
		exitErr("doc path is required")
	}

	mimeType, err := mimeFromExt(*docPath)
	if err != nil {
		exitErr(err.Error())
	}

	docBytes, err := os.ReadFile(*docPath)
	if err != nil {
		exitErr(fmt.Sprintf("read document: %v", err))
	}
	fileName := filepath.Base(*docPath)

	docText, err := extract.ExtractTextFromBytes(context.Background(), docBytes, mimeType, fileName)
	if err != nil {
		exitErr(fmt.Sprintf("extract document text: %v", err))
	}

	client, err := buildClient(*provider, *model)
	if err != nil {
		exitErr(err.Error())
	}

	input := llm.AnalyzeInput{
		DocumentText:  docText,
		Industry:      *industry,
		PromptVersion: *promptVersion,
	}

	raw, err := client.AnalyzeDocument(context.Background(), input)
	if err != nil {
		exitErr(fmt.Sprintf("llm analyze: %v", err))
	}

	result, err := reports.NewPipeline(client).Run(context.Background(), raw, input)
	if err != nil {
		exitErr(fmt.Sprintf("pipeline: %v", err))
	}

	encoded, err := json.Marshal(result)
	if err != nil {
		exitErr(fmt.Sprintf("encode result: %v", err))
	}
	pretty, err := prettyJSON(encoded)
	if err != nil {
		exitErr(fmt.Sprintf("format json: %v", err))
	}

	if *outPath != "" {
		if err := os.WriteFile(*outPath, pretty, 0o644); err != nil {
			exitErr(fmt.Sprintf("write output: %v", err))
		}
	}

	if _, err := os.Stdout.Write(pretty); err != nil {
		exitErr(fmt.Sprintf("write stdout: %v", err))
	}
	if len(pretty) == 0 || pretty[len(pretty)-1] != '\n' {
		_, _ = os.Stdout.Write([]byte("\n"))
	}
}

func buildClient(provider, model string) (llm.Client, error) {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "", "openai":
		return openai.NewClient(os.Getenv("OPENAI_API_KEY"), model)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}

func mimeFromExt(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return "application/pdf", nil
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document", nil
	default:
		return "", fmt.Errorf("unsupported document file type: %s", filepath.Ext(path))
	}
}

func prettyJSON(raw []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func exitErr(msg string) {
	_, _ = fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}
