package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
)

const defaultAPI = "http://localhost:8080"

type tokenData struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at"`
}

type remote struct {
	api       string
	tokenPath string
	client    *http.Client
}

func (r *remote) bind(c *cobra.Command) {
	c.PersistentFlags().StringVar(&r.api, "api", defaultAPI, "API base URL")
	c.PersistentFlags().StringVar(&r.tokenPath, "token", defaultTokenPath(), "token file path")
}

func adminCmd() *cobra.Command {
	r := &remote{client: &http.Client{Timeout: 15 * time.Second}}
	admin := &cobra.Command{
		Use:   "admin",
		Short: "Admin operations against a running API server",
	}
	r.bind(admin)

	var password string
	login := &cobra.Command{
		Use:   "login",
		Short: "Log in as admin and store the token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if password == "" {
				password = os.Getenv("ENGRAM_ADMIN_PASSWORD")
			}
			if password == "" {
				return errors.New("password is required (--password or ENGRAM_ADMIN_PASSWORD)")
			}
			var resp tokenData
			if err := r.doJSON(cmd.Context(), http.MethodPost, "/admin/login", "", map[string]string{"password": password}, &resp); err != nil {
				return fmt.Errorf("login failed: %w", err)
			}
			if err := saveToken(r.tokenPath, resp); err != nil {
				return fmt.Errorf("save token: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "logged in until %s\n", resp.ExpiresAt)
			return nil
		},
	}
	login.Flags().StringVar(&password, "password", "", "admin password")

	clearCmd := &cobra.Command{
		Use:   "clear-cache",
		Short: "Drop every server-side cache",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			token, err := readToken(r.tokenPath)
			if err != nil {
				return fmt.Errorf("token not found, please login: %w", err)
			}
			if err := r.doJSON(cmd.Context(), http.MethodPost, "/admin/cache/clear", token, nil, nil); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "caches cleared")
			return nil
		},
	}

	logout := &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := clearToken(r.tokenPath); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "logged out")
			return nil
		},
	}

	admin.AddCommand(login, clearCmd, logout)
	return admin
}

func watchCmd() *cobra.Command {
	var api string
	c := &cobra.Command{
		Use:   "watch",
		Short: "Print change notifications from a running API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			wsURL, err := websocketURL(api, "/ws")
			if err != nil {
				return err
			}
			ws, _, err := websocket.DefaultDialer.DialContext(cmd.Context(), wsURL, nil)
			if err != nil {
				return fmt.Errorf("connect %s: %w", wsURL, err)
			}
			defer ws.Close()

			for {
				_, msg, err := ws.ReadMessage()
				if err != nil {
					if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
						return nil
					}
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), strings.TrimSpace(string(msg)))
			}
		},
	}
	c.Flags().StringVar(&api, "api", defaultAPI, "API base URL")
	return c
}

func (r *remote) doJSON(ctx context.Context, method, path, token string, payload any, out any) error {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = strings.NewReader(string(b))
	}
	endpoint := strings.TrimRight(r.api, "/") + path
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%s %s failed: %d %s", method, endpoint, resp.StatusCode, strings.TrimSpace(string(data)))
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(data, out)
}

func defaultTokenPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./.engram-token.json"
	}
	return filepath.Join(home, ".engram", "token.json")
}

func saveToken(path string, td tokenData) error {
	if td.Token == "" {
		return errors.New("empty token")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(td, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func readToken(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	var td tokenData
	if err := json.Unmarshal(data, &td); err != nil {
		return "", err
	}
	token := strings.TrimSpace(td.Token)
	if token == "" {
		return "", errors.New("token empty")
	}
	return token, nil
}

func clearToken(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func websocketURL(baseURL, path string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", err
	}
	scheme := "ws"
	if u.Scheme == "https" {
		scheme = "wss"
	}
	return (&url.URL{
		Scheme: scheme,
		Host:   u.Host,
		Path:   path,
	}).String(), nil
}
