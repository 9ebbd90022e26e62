package reporter

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/Layr-Labs/codehash/internal/config"
	"github.com/gocarina/gocsv"
	"github.com/pkg/errors"
)

type csvRow struct {
	Address      string `csv:"address"`
	Endpoint     string `csv:"rpc"`
	Algorithm    string `csv:"algorithm"`
	CodeHash     string `csv:"code_hash"`
	CodeSize     int    `csv:"code_size"`
	ArtifactPath string `csv:"artifact"`
	MetadataIpfs string `csv:"metadata_ipfs"`
	MetadataSolc string `csv:"metadata_solc"`
}

func toCsvRow(res *Result) *csvRow {
	row := &csvRow{
		Address:      res.Address,
		Endpoint:     res.Endpoint,
		Algorithm:    res.Algorithm,
		CodeHash:     res.CodeHash,
		CodeSize:     res.CodeSize,
		ArtifactPath: res.ArtifactPath,
	}
	if res.Metadata != nil {
		row.MetadataIpfs = res.Metadata.Ipfs
		row.MetadataSolc = res.Metadata.Solc
	}
	return row
}

func metadataLines(res *Result) []string {
	lines := []string{}
	if res.Metadata == nil {
		return lines
	}
	if res.Metadata.Ipfs != "" {
		lines = append(lines, fmt.Sprintf("Metadata ipfs: %s", res.Metadata.Ipfs))
	}
	if res.Metadata.Bzzr0 != "" {
		lines = append(lines, fmt.Sprintf("Metadata bzzr0: %s", res.Metadata.Bzzr0))
	}
	if res.Metadata.Bzzr1 != "" {
		lines = append(lines, fmt.Sprintf("Metadata bzzr1: %s", res.Metadata.Bzzr1))
	}
	if res.Metadata.Solc != "" {
		lines = append(lines, fmt.Sprintf("Metadata solc: %s", res.Metadata.Solc))
	}
	return lines
}

func writeLines(w io.Writer, lines []string) error {
	_, err := io.WriteString(w, strings.Join(lines, "\n")+"\n")
	return err
}

func writeJson(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeResult(w io.Writer, format config.OutputFormat, res *Result) error {
	switch format {
	case config.OutputFormat_Json:
		return writeJson(w, res)
	case config.OutputFormat_Csv:
		return gocsv.Marshal([]*csvRow{toCsvRow(res)}, w)
	case config.OutputFormat_Text, "":
		lines := []string{
			fmt.Sprintf("Command: %s", res.Command),
			fmt.Sprintf("Address: %s", res.Address),
			fmt.Sprintf("RPC: %s", res.Endpoint),
			fmt.Sprintf("Code hash: %s", res.CodeHash),
		}
		return writeLines(w, append(lines, metadataLines(res)...))
	default:
		return errors.Errorf("unsupported output format '%s'", format)
	}
}

func writeComparison(w io.Writer, format config.OutputFormat, cmp *ComparisonResult) error {
	switch format {
	case config.OutputFormat_Json:
		return writeJson(w, cmp)
	case config.OutputFormat_Csv:
		rows := make([]*csvRow, 0, len(cmp.Results))
		for _, res := range cmp.Results {
			rows = append(rows, toCsvRow(res))
		}
		return gocsv.Marshal(rows, w)
	case config.OutputFormat_Text, "":
		lines := []string{
			fmt.Sprintf("RPC: %s", cmp.Endpoint),
			fmt.Sprintf("Algorithm: %s", cmp.Algorithm),
		}
		for _, res := range cmp.Results {
			lines = append(lines, fmt.Sprintf("%s %s", res.Address, res.CodeHash))
		}
		lines = append(lines, fmt.Sprintf("Distinct hashes: %d", cmp.Groups.Len()))
		lines = append(lines, fmt.Sprintf("Identical: %t", cmp.Identical))
		return writeLines(w, lines)
	default:
		return errors.Errorf("unsupported output format '%s'", format)
	}
}
