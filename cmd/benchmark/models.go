package main

import "time"

type CaptionResponse struct {
	Caption string `json:"caption"`
}

type BenchResult struct {
	File     string
	Format   string
	Duration time.Duration
	Status   int
	Chars    int
	Err      error
	Size     int64
}

type Agg struct {
	Count      int
	Failed     int
	Total      time.Duration
	TotalBytes int64
}
