package cmd

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/spf13/cobra"

	"github.com/xlsmtools/xlsm-cli/engine"
)

// maxRequestBytes bounds a single request; bulk writes carry their rows
// inline.
const maxRequestBytes = 32 << 20

var serveListen string

var serveCmd = &cobra.Command{
	Use:   "serve [flags]",
	Short: "Serve operations over stdin/stdout or a websocket",
	Long: `Run the request loop: one JSON request per message in, one JSON
result per message out.

A request is {"id": ..., "op": "...", "params": {...}}. The id, when
present, is echoed verbatim on the result. Results are always produced
in request order; a malformed or failing request yields an error result
rather than closing the channel.

By default requests are read line by line from stdin. With --listen the
same protocol is served over a websocket, one request per text message.

Operations:
  ` + joinOperations() + `

Examples:
  xlsm serve < requests.jsonl
  xlsm serve --listen 127.0.0.1:8321`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "Websocket listen address, e.g. 127.0.0.1:8321 (default: stdio)")
	rootCmd.AddCommand(serveCmd)
}

func joinOperations() string {
	var b bytes.Buffer
	for i, op := range engine.Operations() {
		if i > 0 {
			b.WriteString("\n  ")
		}
		b.WriteString(op)
	}
	return b.String()
}

func runServe(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true
	eng := newEngine()
	if serveListen != "" {
		return serveWebsocket(eng, serveListen)
	}
	return serveLines(eng, cmd.InOrStdin(), cmd.OutOrStdout())
}

// serveLines processes newline-delimited requests until EOF. Blank
// lines are skipped.
func serveLines(eng *engine.Engine, in io.Reader, out io.Writer) error {
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 0, 64*1024), maxRequestBytes)
	enc := json.NewEncoder(out)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		if err := enc.Encode(handleRequest(eng, line)); err != nil {
			return err
		}
	}
	return sc.Err()
}

// handleRequest decodes one raw request and dispatches it. Decode
// failures become error results so the caller still gets an answer.
func handleRequest(eng *engine.Engine, raw []byte) engine.Result {
	var req engine.Request
	if err := json.Unmarshal(raw, &req); err != nil {
		return engine.Result{
			Status: engine.StatusError,
			Error: &engine.ErrorInfo{
				Kind:    string(engine.KindInvalidParameter),
				Message: "malformed request: " + err.Error(),
			},
		}
	}
	return eng.Dispatch(req)
}

// websocketHandler serves the request loop over one websocket
// connection per client.
func websocketHandler(eng *engine.Engine) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.CloseNow()
		conn.SetReadLimit(maxRequestBytes)

		ctx := r.Context()
		for {
			_, data, err := conn.Read(ctx)
			if err != nil {
				return
			}
			payload, err := json.Marshal(handleRequest(eng, data))
			if err != nil {
				return
			}
			if err := conn.Write(ctx, websocket.MessageText, payload); err != nil {
				return
			}
		}
	})
}

func serveWebsocket(eng *engine.Engine, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           websocketHandler(eng),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return srv.ListenAndServe()
}
