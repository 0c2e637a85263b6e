package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

var formatFiles = []string{"jpg", "png", "webp", "gif", "pdf"}

func main() {
	endpoint := flag.String("endpoint", "http://localhost:8080/generate-caption", "caption endpoint")
	dataDir := flag.String("data", "data", "directory with one sub-directory per image format")
	style := flag.String("style", "creative", "caption style")
	length := flag.String("length", "medium", "caption length")
	flag.Parse()

	ctx := context.Background()
	fields := map[string]string{
		"style":    *style,
		"length":   *length,
		"emojis":   "true",
		"hashtags": "true",
	}

	var results []BenchResult
	for _, formatFile := range formatFiles {
		dataPath := filepath.Join(*dataDir, formatFile)

		images, _ := os.ReadDir(dataPath)

		for _, img := range images {
			filePath := filepath.Join(dataPath, img.Name())
			res := benchmarkImage(ctx, *endpoint, filePath, fields)

			if res.Err != nil {
				log.Println("ERR:", res.Err)
			} else {
				log.Printf("OK %s %v", res.File, res.Duration)
			}

			results = append(results, res)
		}
	}

	printMarkdown(results)
}

func benchmarkImage(ctx context.Context, endpoint, filePath string, fields map[string]string) BenchResult {
	start := time.Now()
	res := BenchResult{
		File:   filepath.Base(filePath),
		Format: strings.TrimPrefix(filepath.Ext(filePath), "."),
	}

	fileRaw, err := os.ReadFile(filePath)
	if err != nil {
		res.Err = err
		return res
	}
	res.Size = int64(len(fileRaw))

	status, caption, err := sendCaption(ctx, endpoint, res.File, fileRaw, fields)
	res.Duration = time.Since(start)
	res.Status = status
	res.Chars = len([]rune(caption))
	res.Err = err
	return res
}

func sendCaption(ctx context.Context, endpoint, fileName string, data []byte, fields map[string]string) (int, string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	part, err := mw.CreateFormFile("image_file", fileName)
	if err != nil {
		return 0, "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return 0, "", fmt.Errorf("write form file: %w", err)
	}
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return 0, "", fmt.Errorf("write field %s: %w", k, err)
		}
	}
	if err := mw.Close(); err != nil {
		return 0, "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return 0, "", err
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := http.DefaultClient.Do(httpReq)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, "", err
	}

	var out CaptionResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return resp.StatusCode, "", fmt.Errorf("decode response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return resp.StatusCode, "", fmt.Errorf("bad status %d: %s", resp.StatusCode, out.Caption)
	}
	return resp.StatusCode, out.Caption, nil
}

func aggregate(results []BenchResult) map[string]Agg {
	m := map[string]Agg{}
	for _, r := range results {
		a := m[r.Format]
		if r.Err != nil {
			a.Failed++
			m[r.Format] = a
			continue
		}
		a.Count++
		a.TotalBytes += r.Size
		a.Total += r.Duration
		m[r.Format] = a
	}
	return m
}

func printMarkdown(results []BenchResult) {
	fmt.Print("\n## Benchmark Results\n\n")
	fmt.Println("| Format | Requests | Failed | Avg Time | Total Time | Avg File Size |")
	fmt.Println("|--------|----------|--------|----------|------------|---------------|")

	agg := aggregate(results)

	formats := make([]string, 0, len(agg))
	for format := range agg {
		formats = append(formats, format)
	}
	sort.Strings(formats)

	var (
		totalCount    int
		totalFailed   int
		totalDuration time.Duration
		totalBytes    int64
	)

	for _, format := range formats {
		a := agg[format]
		totalFailed += a.Failed
		if a.Count == 0 {
			fmt.Printf("| %s | 0 | %d | - | - | - |\n", format, a.Failed)
			continue
		}
		avg := a.Total / time.Duration(a.Count)
		avgSize := a.TotalBytes / int64(a.Count)
		fmt.Printf("| %s | %d | %d | %v | %v | %s |\n",
			format,
			a.Count,
			a.Failed,
			avg.Round(time.Millisecond),
			a.Total.Round(time.Millisecond),
			humanBytes(avgSize),
		)
		totalCount += a.Count
		totalDuration += a.Total
		totalBytes += a.TotalBytes
	}

	if totalCount > 0 {
		mean := totalDuration / time.Duration(totalCount)
		avgSize := totalBytes / int64(totalCount)
		fmt.Printf("| **ALL** | %d | %d | %v | %v | %s |\n",
			totalCount,
			totalFailed,
			mean.Round(time.Millisecond),
			totalDuration.Round(time.Millisecond),
			humanBytes(avgSize),
		)
	}
}

func humanBytes(size int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)
	switch {
	case size >= GB:
		return fmt.Sprintf("%.2f GB", float64(size)/GB)
	case size >= MB:
		return fmt.Sprintf("%.2f MB", float64(size)/MB)
	case size >= KB:
		return fmt.Sprintf("%.2f KB", float64(size)/KB)
	default:
		return fmt.Sprintf("%d B", size)
	}
}
