package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/exoshivam/smart-attendance/core"
	"github.com/exoshivam/smart-attendance/core/student"
)

// importRisk reads rfidTagId,dropoutRisk[,riskFactors] rows from path (- for stdin).
// riskFactors are separated by ';'. A leading header row is skipped.
// Bad rows are reported and skipped; the import fails if any row did.
func (cli *commandLine) importRisk(ctx context.Context, path string) error {
	var r io.Reader = cli.in
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return errors.Wrap(err, "opening risk file")
		}
		defer f.Close()
		r = f
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var line, total, failed int
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return errors.Wrapf(err, "reading line %d", line)
		}
		if line == 1 && strings.EqualFold(strings.TrimSpace(record[0]), "rfidTagId") {
			continue
		}
		total++
		if err := cli.importRiskRow(ctx, record); err != nil {
			failed++
			fmt.Fprintf(cli.out, "line %d: %s\n", line, cli.describe(err))
		}
	}

	fmt.Fprintf(cli.out, "Updated %d of %d students\n", total-failed, total)
	if failed > 0 {
		return errors.Errorf("%d of %d rows failed", failed, total)
	}
	return nil
}

// parseRiskRow binds a CSV row to a RiskUpdate.
func parseRiskRow(record []string) (student.RiskUpdate, error) {
	if len(record) < 2 {
		return student.RiskUpdate{}, errors.New("expected rfidTagId,dropoutRisk")
	}
	risk, err := strconv.ParseFloat(strings.TrimSpace(record[1]), 64)
	if err != nil {
		return student.RiskUpdate{}, errors.Errorf("dropoutRisk must be a number (got '%s')", record[1])
	}

	upd := student.RiskUpdate{
		RFIDTagID:   core.CleanString(record[0]),
		DropoutRisk: risk,
		RiskFactors: []string{},
	}
	if len(record) > 2 {
		for _, f := range strings.Split(record[2], ";") {
			if f = strings.TrimSpace(f); f != "" {
				upd.RiskFactors = append(upd.RiskFactors, f)
			}
		}
	}
	return upd, nil
}

func (cli *commandLine) importRiskRow(ctx context.Context, record []string) error {
	upd, err := parseRiskRow(record)
	if err != nil {
		return err
	}
	if err = cli.validate.Struct(&upd); err != nil {
		return err
	}
	_, err = cli.students.SetDropoutRisk(ctx, upd.RFIDTagID, upd.DropoutRisk, upd.RiskFactors...)
	return err
}
