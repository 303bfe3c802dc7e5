package subtitles

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
)

// ParseSRTFile reads an SRT file into a cue list.
func ParseSRTFile(path string) ([]Cue, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read srt: %w", err)
	}
	return ParseSRT(string(data))
}

// ParseSRT parses SRT content into cues. Blocks whose timing line cannot be
// parsed are skipped; indices are re-derived from block order.
func ParseSRT(content string) ([]Cue, error) {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.TrimPrefix(content, "\uFEFF")
	blocks := strings.Split(strings.TrimSpace(content), "\n\n")

	var cues []Cue
	for _, block := range blocks {
		lines := strings.Split(strings.TrimSpace(block), "\n")
		if len(lines) == 0 {
			continue
		}

		// The first line is usually the numeric index; some files omit it.
		timingLine := -1
		for i, line := range lines {
			if strings.Contains(line, "-->") {
				timingLine = i
				break
			}
		}
		if timingLine < 0 || timingLine > 1 {
			continue
		}

		start, end, err := parseTimingLine(lines[timingLine])
		if err != nil {
			continue
		}

		text := lines[timingLine+1:]
		trimmed := make([]string, 0, len(text))
		for _, line := range text {
			trimmed = append(trimmed, strings.TrimRight(line, " \t"))
		}
		cues = append(cues, Cue{
			Index: len(cues) + 1,
			Start: start,
			End:   end,
			Lines: trimmed,
		})
	}
	return cues, nil
}

// WriteSRTFile serializes cues to an SRT file.
func WriteSRTFile(path string, cues []Cue) error {
	return os.WriteFile(path, []byte(FormatSRT(cues)), 0o644)
}

// FormatSRT serializes a cue list into SRT content. Cue indices are taken
// as-is; callers renumber via Clamp or Renumber first.
func FormatSRT(cues []Cue) string {
	var sb strings.Builder
	for i, cue := range cues {
		if i > 0 {
			sb.WriteByte('\n')
		}
		index := cue.Index
		if index <= 0 {
			index = i + 1
		}
		sb.WriteString(strconv.Itoa(index))
		sb.WriteByte('\n')
		sb.WriteString(FormatTimestamp(cue.Start))
		sb.WriteString(" --> ")
		sb.WriteString(FormatTimestamp(cue.End))
		sb.WriteByte('\n')
		for _, line := range cue.Lines {
			sb.WriteString(line)
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

func parseTimingLine(line string) (float64, float64, error) {
	parts := strings.Split(line, "-->")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid timing line %q", line)
	}
	start, err := ParseTimestamp(parts[0])
	if err != nil {
		return 0, 0, err
	}
	// Position/style annotations may trail the end timestamp.
	endText := strings.Fields(strings.TrimSpace(parts[1]))
	if len(endText) == 0 {
		return 0, 0, fmt.Errorf("invalid timing line %q", line)
	}
	end, err := ParseTimestamp(endText[0])
	if err != nil {
		return 0, 0, err
	}
	return start, end, nil
}

// ParseTimestamp converts an SRT timestamp (HH:MM:SS,mmm) into seconds.
// A period is accepted in place of the standard comma.
func ParseTimestamp(value string) (float64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, fmt.Errorf("empty timestamp")
	}
	value = strings.ReplaceAll(value, ".", ",")
	timeParts := strings.Split(value, ",")
	if len(timeParts) != 2 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hms := strings.Split(timeParts[0], ":")
	if len(hms) != 3 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hours, errH := strconv.Atoi(hms[0])
	minutes, errM := strconv.Atoi(hms[1])
	seconds, errS := strconv.Atoi(hms[2])
	millis, errMS := strconv.Atoi(timeParts[1])
	if errH != nil || errM != nil || errS != nil || errMS != nil {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	return float64(hours*3600+minutes*60+seconds) + float64(millis)/1000, nil
}

// FormatTimestamp converts seconds to the SRT time format HH:MM:SS,mmm.
func FormatTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	totalMillis := int64(math.Round(seconds * 1000))
	hours := totalMillis / 3_600_000
	totalMillis -= hours * 3_600_000
	minutes := totalMillis / 60_000
	totalMillis -= minutes * 60_000
	secs := totalMillis / 1000
	millis := totalMillis - secs*1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, secs, millis)
}

// LastTimestamp reports the greatest cue end time in the list.
func LastTimestamp(cues []Cue) float64 {
	var last float64
	for _, cue := range cues {
		if cue.End > last {
			last = cue.End
		}
	}
	return last
}
