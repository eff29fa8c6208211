package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

type sample struct {
	UserID int64  `json:"userId"`
	Name   string `json:"name"`
}

func TestPrinterFormats(t *testing.T) {
	data := sample{UserID: 7, Name: "alice"}
	text := func(w io.Writer) { fmt.Fprintln(w, "alice #7") }

	var buf bytes.Buffer
	p := &Printer{Format: FormatText, Writer: &buf}
	assert.NoError(t, p.Print(data, text))
	assert.Equal(t, "alice #7\n", buf.String())

	buf.Reset()
	p.Format = FormatJSON
	assert.NoError(t, p.Print(data, text))
	assert.Contains(t, buf.String(), `"status": "ok"`)
	assert.Contains(t, buf.String(), `"userId": 7`)

	buf.Reset()
	p.Format = FormatYAML
	assert.NoError(t, p.Print(data, text))
	assert.Equal(t, "name: alice\nuserId: 7\n", buf.String())
}

func TestPrintError(t *testing.T) {
	err := WrapExitError(ExitFailure, "request failed", errors.New("发送消息失败"))

	var out, errOut bytes.Buffer
	p := &Printer{Format: FormatText, Writer: &out, ErrWriter: &errOut}
	p.PrintError(err)
	assert.Empty(t, out.String())
	assert.Equal(t, "Error: 发送消息失败\n", errOut.String())

	out.Reset()
	p.Format = FormatJSON
	p.PrintError(err)
	assert.JSONEq(t, `{"status":"error","error":{"code":1,"message":"发送消息失败"}}`, out.String())
}

func TestVerboseLog(t *testing.T) {
	var out, errOut bytes.Buffer
	p := &Printer{Format: FormatJSON, Writer: &out, ErrWriter: &errOut}
	p.Logf("hidden")
	assert.Empty(t, errOut.String())

	p.Verbose = true
	p.Logf("session: %s", "adopted")
	assert.Equal(t, "session: adopted\n", errOut.String())
	assert.Empty(t, out.String())
}
