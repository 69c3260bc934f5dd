// Command weather-server is a demo MCP server exposing US National Weather
// Service data as tools. It serves over stdio by default or streamable HTTP
// with --http, which is the shape of server the bridge consumes.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

func main() {
	httpAddr := flag.String("http", "", "serve streamable HTTP on this address (e.g. :8123) instead of stdio")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	weather := newWeatherService(&http.Client{Timeout: 30 * time.Second}, logger)

	s := server.NewMCPServer("weather", "0.1.0", server.WithToolCapabilities(false))

	s.AddTool(
		mcp.NewTool("get_alerts",
			mcp.WithDescription("Get active weather alerts for a US state."),
			mcp.WithString("state", mcp.Required(), mcp.Description("Two-letter US state code (e.g. CA, NY)")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			state, err := req.RequireString("state")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			return mcp.NewToolResultText(weather.alerts(ctx, state)), nil
		},
	)

	s.AddTool(
		mcp.NewTool("get_forecast",
			mcp.WithDescription("Get the weather forecast for a latitude/longitude."),
			mcp.WithNumber("latitude", mcp.Required(), mcp.Description("Latitude of the location")),
			mcp.WithNumber("longitude", mcp.Required(), mcp.Description("Longitude of the location")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			lat, err := req.RequireFloat("latitude")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			lon, err := req.RequireFloat("longitude")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			return mcp.NewToolResultText(weather.forecast(ctx, lat, lon)), nil
		},
	)

	if *httpAddr != "" {
		logger.Info("serving weather MCP server over streamable HTTP", "addr", *httpAddr)
		if err := server.NewStreamableHTTPServer(s).Start(*httpAddr); err != nil {
			logger.Error("http server stopped", "error", err)
			os.Exit(1)
		}
		return
	}

	logger.Info("serving weather MCP server over stdio")
	if err := server.ServeStdio(s); err != nil {
		logger.Error("stdio server stopped", "error", err)
		os.Exit(1)
	}
}

const (
	nwsBaseURL = "https://api.weather.gov"
	userAgent  = "mcp-agent-bridge-weather/0.1 (demo)"
)

// weatherService wraps the NWS API behind the two demo tools. The HTTP client
// is owned here and shared by all requests.
type weatherService struct {
	client *http.Client
	logger *slog.Logger
}

func newWeatherService(client *http.Client, logger *slog.Logger) *weatherService {
	return &weatherService{client: client, logger: logger}
}

func (w *weatherService) alerts(ctx context.Context, state string) string {
	url := fmt.Sprintf("%s/alerts/active/area/%s", nwsBaseURL, strings.ToUpper(strings.TrimSpace(state)))

	var payload struct {
		Features []struct {
			Properties struct {
				Event       string `json:"event"`
				AreaDesc    string `json:"areaDesc"`
				Severity    string `json:"severity"`
				Description string `json:"description"`
				Instruction string `json:"instruction"`
			} `json:"properties"`
		} `json:"features"`
	}
	if err := w.get(ctx, url, &payload); err != nil {
		w.logger.Error("alerts request failed", "url", url, "error", err)
		return "Unable to fetch alerts or no alerts found for this state."
	}
	if len(payload.Features) == 0 {
		return fmt.Sprintf("No active alerts found for %s.", strings.ToUpper(strings.TrimSpace(state)))
	}

	alerts := make([]string, 0, len(payload.Features))
	for _, feature := range payload.Features {
		p := feature.Properties
		alerts = append(alerts, fmt.Sprintf(
			"Event: %s\nArea: %s\nSeverity: %s\nDescription: %s\nInstructions: %s",
			orUnknown(p.Event), orUnknown(p.AreaDesc), orUnknown(p.Severity),
			orDefault(p.Description, "No description available"),
			orDefault(p.Instruction, "No specific instructions provided"),
		))
	}
	return strings.Join(alerts, "\n---\n")
}

func (w *weatherService) forecast(ctx context.Context, latitude, longitude float64) string {
	pointsURL := fmt.Sprintf("%s/points/%.4f,%.4f", nwsBaseURL, latitude, longitude)

	var points struct {
		Properties struct {
			Forecast string `json:"forecast"`
		} `json:"properties"`
	}
	if err := w.get(ctx, pointsURL, &points); err != nil || points.Properties.Forecast == "" {
		w.logger.Error("points request failed", "url", pointsURL, "error", err)
		return "Unable to get forecast grid point for this location."
	}

	var forecast struct {
		Properties struct {
			Periods []struct {
				Name            string `json:"name"`
				Temperature     int    `json:"temperature"`
				TemperatureUnit string `json:"temperatureUnit"`
				WindSpeed       string `json:"windSpeed"`
				WindDirection   string `json:"windDirection"`
				ShortForecast   string `json:"shortForecast"`
			} `json:"periods"`
		} `json:"properties"`
	}
	if err := w.get(ctx, points.Properties.Forecast, &forecast); err != nil {
		w.logger.Error("forecast request failed", "url", points.Properties.Forecast, "error", err)
		return "Unable to fetch detailed forecast data."
	}
	if len(forecast.Properties.Periods) == 0 {
		return "No forecast periods found."
	}

	// The next three periods keep the reply short.
	periods := forecast.Properties.Periods
	if len(periods) > 3 {
		periods = periods[:3]
	}
	parts := make([]string, 0, len(periods))
	for _, p := range periods {
		parts = append(parts, fmt.Sprintf(
			"%s:\nTemperature: %d°%s\nWind: %s %s\nForecast: %s",
			orUnknown(p.Name), p.Temperature, orDefault(p.TemperatureUnit, "F"),
			orDefault(p.WindSpeed, "N/A"), orDefault(p.WindDirection, "N/A"),
			orDefault(p.ShortForecast, "No short forecast available"),
		))
	}
	return strings.Join(parts, "\n---\n")
}

func (w *weatherService) get(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/geo+json")

	resp, err := w.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}
	return decodeJSON(resp.Body, out)
}

func decodeJSON(r io.Reader, out any) error {
	return json.NewDecoder(r).Decode(out)
}

func orUnknown(s string) string { return orDefault(s, "Unknown") }

func orDefault(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}
