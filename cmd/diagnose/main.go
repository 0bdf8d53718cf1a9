// Command diagnose runs one AI diagnosis from the command line: point it at
// photo files of a damaged device and it prints the repair guide as JSON.
package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zester4/fixium/engine/diagnose"
	"github.com/zester4/fixium/engine/domain"
)

func main() {
	var (
		category  = flag.String("category", "", "device category (phone, laptop, ...)")
		model     = flag.String("model", "", "device model, optional")
		condition = flag.String("condition", "", "reported condition, e.g. 'cracked screen'")
		gateway   = flag.String("gateway", envOr("AI_GATEWAY_URL", "https://openrouter.ai/api"), "AI gateway base URL")
		aiModel   = flag.String("ai-model", envOr("AI_GATEWAY_MODEL", ""), "chat model override")
		timeout   = flag.Duration("timeout", 2*time.Minute, "request timeout")
	)
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	slog.SetDefault(logger)

	if *category == "" || flag.NArg() == 0 {
		fmt.Fprintf(os.Stderr, "usage: %s -category phone [-model ...] [-condition ...] photo.jpg [photo2.jpg ...]\n", os.Args[0])
		os.Exit(2)
	}

	device := domain.DeviceInfo{
		Category:  domain.DeviceCategory(*category),
		Model:     *model,
		Condition: *condition,
	}
	if err := domain.ValidateDeviceInfo(device); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	photos, err := loadPhotos(flag.Args())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	client := diagnose.NewGateway(diagnose.GatewayOpts{
		BaseURL: *gateway,
		APIKey:  os.Getenv("AI_GATEWAY_KEY"),
		Model:   *aiModel,
	})
	svc := diagnose.New(client, nil, nil, diagnose.DefaultOptions(), logger)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	guide, err := svc.Analyze(ctx, uuid.NewString(), device, photos)
	if err != nil {
		fmt.Fprintln(os.Stderr, "diagnosis failed:", err)
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.Encode(guide)
}

// loadPhotos reads image files into data URIs. The first file is labelled
// the front view, the second the problem area, the rest detail shots.
func loadPhotos(paths []string) ([]domain.CapturedPhoto, error) {
	roles := []domain.PhotoRole{domain.RoleFront, domain.RoleProblem, domain.RoleDetail}

	photos := make([]domain.CapturedPhoto, 0, len(paths))
	for i, path := range paths {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		mimeType := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
		if !strings.HasPrefix(mimeType, "image/") {
			return nil, fmt.Errorf("%s: not a recognized image type", path)
		}
		role := roles[min(i, len(roles)-1)]
		photos = append(photos, domain.CapturedPhoto{
			ID:        uuid.NewString(),
			Role:      role,
			DataURL:   fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(raw)),
			Timestamp: time.Now().UnixMilli(),
		})
	}
	return photos, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
