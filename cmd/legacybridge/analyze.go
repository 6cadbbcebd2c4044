package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/i2y/legacybridge/configs"
	"github.com/i2y/legacybridge/internal/adapter/outbound/github"
	"github.com/i2y/legacybridge/internal/usecase"
)

type analyzeOptions struct {
	mode    string
	input   string
	request usecase.AnalyzeRequest
	headers string
}

func analyzeCmd() *cobra.Command {
	var opts analyzeOptions
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Infer normalized resource schemas and print them as JSON",
		Long: `Analyze runs one analysis mode without starting the server.

Document modes (openapi, json_sample, wsdl, soap_xml_sample) read --input,
which may be a local file, "-" for stdin or a github://owner/repo/path@ref URL.
The remaining modes call the legacy service named by the URL flags.`,
		Example: `  legacybridge analyze --mode wsdl --input ./CustomerService.wsdl
  legacybridge analyze --mode endpoint --base-url https://erp.local --endpoint /api/v1/customers --auth-type bearer --auth-value $TOKEN`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd.Context(), cmd.OutOrStdout(), cmd.InOrStdin(), opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.mode, "mode", "m", "", "Analysis mode: openapi, openapi_url, endpoint, json_sample, wsdl, wsdl_url, soap_endpoint, soap_xml_sample")
	flags.StringVarP(&opts.input, "input", "i", "", "Document to analyze: file path, - for stdin, or github:// URL")
	flags.StringVar(&opts.request.SpecURL, "spec-url", "", "OpenAPI document or service URL (openapi_url)")
	flags.StringVar(&opts.request.WSDLURL, "wsdl-url", "", "WSDL URL (wsdl_url)")
	flags.StringVar(&opts.request.BaseURL, "base-url", "", "Service base URL (endpoint, soap_endpoint)")
	flags.StringVar(&opts.request.EndpointPath, "endpoint", "", "Endpoint path (endpoint, json_sample)")
	flags.StringVar(&opts.request.Method, "method", "", "HTTP method for endpoint mode: GET or POST")
	flags.StringVar(&opts.request.AuthType, "auth-type", "", "Auth type for endpoint mode: bearer, basic or api-key")
	flags.StringVar(&opts.request.AuthValue, "auth-value", "", "Credential for --auth-type")
	flags.StringVar(&opts.headers, "headers", "", "Extra request headers as a JSON object")
	flags.StringVar(&opts.request.SoapAction, "soap-action", "", "SOAPAction of the operation to call (soap_endpoint)")
	flags.StringVar(&opts.request.Username, "username", "", "SOAP username")
	flags.StringVar(&opts.request.Password, "password", "", "SOAP password")
	flags.StringVar(&opts.request.OperationName, "operation", "", "Operation name hint (soap_xml_sample)")
	_ = cmd.MarkFlagRequired("mode")

	return cmd
}

func runAnalyze(ctx context.Context, out io.Writer, stdin io.Reader, opts analyzeOptions) error {
	cfg, err := configs.Load(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger := newLogger(cfg)
	source := github.NewSource(nil, logger)

	req := opts.request
	req.Mode = usecase.AnalyzeMode(opts.mode)
	if opts.headers != "" {
		req.CustomHeaders = json.RawMessage(opts.headers)
	}

	if opts.input != "" {
		content, err := readInput(ctx, source, stdin, opts.input)
		if err != nil {
			return err
		}
		if err := attachDocument(&req, content); err != nil {
			return err
		}
	}

	result, err := newComponents(cfg, nil, logger).analyze.Execute(ctx, req)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// attachDocument places the document in the request field read by the
// selected mode.
func attachDocument(req *usecase.AnalyzeRequest, content []byte) error {
	switch req.Mode {
	case usecase.ModeOpenAPI:
		spec, err := json.Marshal(string(content))
		if err != nil {
			return err
		}
		req.SpecJSON = spec
	case usecase.ModeJSONSample:
		if !json.Valid(content) {
			return fmt.Errorf("input is not valid JSON")
		}
		req.SampleJSON = content
	case usecase.ModeWSDL:
		req.WSDLContent = string(content)
	case usecase.ModeSoapXMLSample:
		req.SampleXML = string(content)
	default:
		return fmt.Errorf("mode %q does not read --input", req.Mode)
	}
	return nil
}

func readInput(ctx context.Context, source *github.Source, stdin io.Reader, input string) ([]byte, error) {
	switch {
	case input == "-":
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		return data, nil
	case github.IsURL(input):
		slog.Debug("Fetching input from GitHub.", slog.String("url", input))
		return source.Fetch(ctx, input)
	default:
		data, err := os.ReadFile(input)
		if err != nil {
			return nil, fmt.Errorf("failed to read input '%s': %w", input, err)
		}
		return data, nil
	}
}
