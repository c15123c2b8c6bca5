package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/felixgeelhaar/langtutor/internal/config"
	"github.com/felixgeelhaar/langtutor/internal/daemon"
)

const pidFileName = "langtutor.pid"

// cmdServe runs the HTTP API in the foreground until interrupted
func cmdServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	addr := fs.String("addr", "", "listen address (default from config)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, cleanup, err := openApp(slog.LevelInfo)
	if err != nil {
		return err
	}
	defer cleanup()

	listen := *addr
	if listen == "" {
		listen = a.Config.Server.Addr()
	}

	pidPath := filepath.Join(a.Dir, pidFileName)
	if err := os.WriteFile(pidPath, []byte(fmt.Sprintf("%d\n", os.Getpid())), 0644); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	server, err := daemon.NewServer(daemon.ServerConfig{
		App:     a,
		Addr:    listen,
		Version: Version,
		Logger:  slog.Default(),
	})
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}

	ctx, cancel := signalContext()
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()
		slog.Info("received signal, shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	if err := server.Start(); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	<-done
	slog.Info("server stopped")
	return nil
}

// cmdServer controls a background API server
func cmdServer(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: langtutor server <start|stop|status|logs>")
	}

	dir, err := config.EnsureDir()
	if err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	cfg, err := config.LoadLocalConfigFrom(dir)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	baseURL := "http://" + cfg.Server.Addr()

	switch args[0] {
	case "start":
		return serverStart(dir, baseURL)
	case "stop":
		return serverStop(dir, baseURL)
	case "status":
		return serverStatus(baseURL)
	case "logs":
		return serverLogs(dir)
	default:
		return fmt.Errorf("unknown server command: %s", args[0])
	}
}

var probeClient = &http.Client{Timeout: 2 * time.Second}

// isRunning checks the health endpoint
func isRunning(baseURL string) bool {
	resp, err := probeClient.Get(baseURL + "/v1/health")
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func serverStart(dir, baseURL string) error {
	if isRunning(baseURL) {
		fmt.Println("✓ Server is already running")
		return nil
	}

	self, err := os.Executable()
	if err != nil {
		return fmt.Errorf("find executable: %w", err)
	}

	cmd := exec.Command(self, "serve")
	cmd.Dir = dir
	detachProcess(cmd)

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start server: %w", err)
	}

	fmt.Print("Starting server...")
	for i := 0; i < 30; i++ {
		time.Sleep(100 * time.Millisecond)
		if isRunning(baseURL) {
			fmt.Println(" ✓")
			fmt.Printf("Server running at %s\n", baseURL)
			return nil
		}
		fmt.Print(".")
	}

	fmt.Println(" ✗")
	return fmt.Errorf("server failed to start (check logs with 'langtutor server logs')")
}

func serverStop(dir, baseURL string) error {
	if !isRunning(baseURL) {
		fmt.Println("Server is not running")
		return nil
	}

	data, err := os.ReadFile(filepath.Join(dir, pidFileName))
	if err != nil {
		return fmt.Errorf("read pid file: %w", err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return fmt.Errorf("parse pid: %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("find process: %w", err)
	}

	fmt.Print("Stopping server...")
	if err := process.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("send signal: %w", err)
	}

	for i := 0; i < 50; i++ {
		time.Sleep(100 * time.Millisecond)
		if !isRunning(baseURL) {
			fmt.Println(" ✓")
			return nil
		}
		fmt.Print(".")
	}

	fmt.Println(" ✗")
	return fmt.Errorf("server did not stop gracefully")
}

func serverStatus(baseURL string) error {
	resp, err := probeClient.Get(baseURL + "/v1/status")
	if err != nil {
		fmt.Println("Status: stopped")
		return nil
	}
	defer resp.Body.Close()

	var status struct {
		Status        string   `json:"status"`
		Version       string   `json:"version"`
		Uptime        int      `json:"uptime_seconds"`
		Provider      string   `json:"provider"`
		LLMProviders  []string `json:"llm_providers"`
		Languages     int      `json:"languages"`
		ExerciseTypes int      `json:"exercise_types"`
		Storage       string   `json:"storage"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return fmt.Errorf("parse status: %w", err)
	}

	fmt.Printf("Status:    %s\n", status.Status)
	fmt.Printf("Version:   %s\n", status.Version)
	fmt.Printf("Uptime:    %s\n", time.Duration(status.Uptime)*time.Second)
	fmt.Printf("Provider:  %s (available: %s)\n", status.Provider, strings.Join(status.LLMProviders, ", "))
	fmt.Printf("Catalog:   %d languages, %d exercise types\n", status.Languages, status.ExerciseTypes)
	fmt.Printf("Storage:   %s\n", status.Storage)
	fmt.Printf("Address:   %s\n", baseURL)
	return nil
}

// serverLogs prints the tail of the log file
func serverLogs(dir string) error {
	logPath := filepath.Join(dir, "logs", "langtutor.log")

	file, err := os.Open(logPath)
	if os.IsNotExist(err) {
		fmt.Println("No log file found.")
		return nil
	}
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	return tailLines(file, os.Stdout, 4096)
}

// tailLines copies roughly the last window bytes of r, starting at a line boundary
func tailLines(r io.ReadSeeker, w io.Writer, window int64) error {
	size, err := r.Seek(0, io.SeekEnd)
	if err != nil {
		return err
	}
	offset := max(size-window, 0)
	if _, err := r.Seek(offset, io.SeekStart); err != nil {
		return err
	}

	reader := bufio.NewReader(r)
	if offset > 0 {
		// Skip the partial first line
		if _, err := reader.ReadString('\n'); err != nil {
			return nil
		}
	}
	_, err = io.Copy(w, reader)
	return err
}
