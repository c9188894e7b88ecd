package main

import (
	"context"
	"flag"
	"io"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	incoming "github.com/frankli0324/go-incoming"
)

func envOr(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

func envBool(key string) bool {
	v, _ := strconv.ParseBool(os.Getenv(key))
	return v
}

func main() {
	_ = godotenv.Load(".env")

	target := flag.String("target", envOr("INCOMING_TARGET", ""), "URL to POST the message to, the message is only drained locally when empty")
	payload := flag.String("body", envOr("INCOMING_BODY", "Incoming Message hello world"), "message payload")
	useH2C := flag.Bool("h2c", envBool("INCOMING_H2C"), "speak HTTP/2 with prior knowledge to the target")
	timeout := flag.Duration("timeout", 10*time.Second, "request timeout")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	url := *target
	if url == "" {
		url = "https://example.com"
	}
	m, err := incoming.NewMessage(incoming.MessageInit{
		Method:     "POST",
		URL:        url,
		Header:     incoming.Header{"content-type": {"text/plain"}},
		Body:       []byte(*payload),
		RemoteAddr: "127.0.0.1",
	})
	if err != nil {
		logger.Error("build message", "error", err)
		os.Exit(1)
	}
	logger.Info("incoming_message", "method", m.Method(), "url", m.URL(), "content_length", m.ContentLength())

	if *target == "" {
		err = drain(logger, m)
	} else {
		ctx, cancel := context.WithTimeout(context.Background(), *timeout)
		defer cancel()
		err = send(ctx, logger, m, *useH2C)
	}
	if err != nil {
		logger.Error("incoming failed", "error", err)
		os.Exit(1)
	}
}

// drain turns the message into a request body and logs every chunk read
// from it.
func drain(logger *slog.Logger, m *incoming.Message) error {
	pr, err := incoming.MessageRequest(m).Prepare()
	if err != nil {
		return err
	}
	body, err := pr.GetBody()
	if err != nil {
		return err
	}
	defer body.Close()

	buf := make([]byte, 4096)
	for {
		n, err := body.Read(buf)
		if n > 0 {
			logger.Info("chunk", "data", string(buf[:n]))
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func send(ctx context.Context, logger *slog.Logger, m *incoming.Message, useH2C bool) error {
	c := &incoming.Client{}
	c.Use(incoming.LogMiddleware(logger))
	if useH2C {
		c.UseH2C()
	}
	resp, err := c.CtxDo(ctx, incoming.MessageRequest(m))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	logger.Info("response", "status", resp.Status, "body", string(b))
	return nil
}
