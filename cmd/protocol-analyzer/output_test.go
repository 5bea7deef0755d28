package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/protocol-analyzer/pkg/types"
)

func sampleOutput() analyzeOutput {
	return analyzeOutput{
		Analysis: types.AnalysisResult{
			Success:       true,
			MainCondition: "Type 2 diabetes",
			Drugs:         []types.DrugRecord{{ID: "d1", Name: "Metformin", InnEnglish: "metformin"}},
			Timestamp:     "20260314_092653",
		},
		Research: map[string]types.ResearchEnvelope{"d1": types.ResearchEnvelope{}.Normalized()},
	}
}

func TestWriteOutputJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeOutput(&buf, "json", sampleOutput()))

	out := buf.String()
	assert.Contains(t, out, `"main_condition": "Type 2 diabetes"`)
	assert.Contains(t, out, `"innEnglish": "metformin"`)
	assert.Contains(t, out, `"literature": []`)
	assert.NotContains(t, out, `"report"`)
}

func TestWriteOutputYAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeOutput(&buf, "yaml", sampleOutput()))

	out := buf.String()
	assert.Contains(t, out, "main_condition: Type 2 diabetes")
	assert.Contains(t, out, "inn_english: metformin")
}

func TestWriteOutputUnknownFormat(t *testing.T) {
	err := writeOutput(&bytes.Buffer{}, "xml", sampleOutput())
	assert.Error(t, err)
}

func TestVersionCommand(t *testing.T) {
	var buf bytes.Buffer
	versionCmd.SetOut(&buf)
	versionCmd.Run(versionCmd, nil)
	assert.Equal(t, "protocol-analyzer "+version+"\n", buf.String())
}
