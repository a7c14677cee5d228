// Package xmltv renders a built schedule as an XMLTV guide document.
package xmltv

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/snapetech/pseudotv/internal/catalog"
	"github.com/snapetech/pseudotv/internal/schedule"
)

// TimeFormat is the XMLTV timestamp layout.
const TimeFormat = "20060102150405 -0700"

// SourceName is written as the document's source-info-name.
const SourceName = "pseudo-tv"

type xmlTVRoot struct {
	XMLName    xml.Name       `xml:"tv"`
	Source     string         `xml:"source-info-name,attr,omitempty"`
	Generator  string         `xml:"generator-info-name,attr,omitempty"`
	Channels   []xmlChannel   `xml:"channel"`
	Programmes []xmlProgramme `xml:"programme"`
}

type xmlChannel struct {
	ID      string `xml:"id,attr"`
	Display string `xml:"display-name"`
}

type xmlProgramme struct {
	Start      string         `xml:"start,attr"`
	Stop       string         `xml:"stop,attr"`
	Channel    string         `xml:"channel,attr"`
	Title      xmlValue       `xml:"title"`
	SubTitle   *xmlValue      `xml:"sub-title,omitempty"`
	Date       string         `xml:"date,omitempty"`
	Category   *xmlValue      `xml:"category,omitempty"`
	Length     *xmlLength     `xml:"length,omitempty"`
	EpisodeNum *xmlEpisodeNum `xml:"episode-num,omitempty"`
}

type xmlValue struct {
	Value string `xml:",chardata"`
}

type xmlLength struct {
	Units string `xml:"units,attr"`
	Value int    `xml:",chardata"`
}

type xmlEpisodeNum struct {
	System string `xml:"system,attr"`
	Value  string `xml:",chardata"`
}

// ChannelID turns a channel name into a stable XMLTV id ("Late Night" -> "late-night.pseudotv").
func ChannelID(name string) string {
	return slug(name) + ".pseudotv"
}

func slug(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if b.Len() > 0 && !dash {
			b.WriteByte('-')
			dash = true
		}
	}
	out := strings.TrimSuffix(b.String(), "-")
	if out == "" {
		return "channel"
	}
	return out
}

// Write encodes s with one channel per lineup and one programme per entry.
func Write(w io.Writer, s *schedule.Schedule) error {
	tv := &xmlTVRoot{
		XMLName:   xml.Name{Local: "tv"},
		Source:    SourceName,
		Generator: SourceName + " " + s.RunID.String(),
	}
	ids := make(map[string]string)
	taken := make(map[string]bool)
	for _, name := range s.Channels() {
		id := ChannelID(name)
		// distinct names can slug to the same id
		for n := 2; taken[id]; n++ {
			id = fmt.Sprintf("%s-%d.pseudotv", slug(name), n)
		}
		taken[id] = true
		ids[name] = id
		tv.Channels = append(tv.Channels, xmlChannel{ID: id, Display: name})
	}
	for _, e := range s.Entries() {
		tv.Programmes = append(tv.Programmes, programme(ids[e.Channel], e))
	}
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(tv); err != nil {
		return fmt.Errorf("encode xmltv: %w", err)
	}
	_, err := io.WriteString(w, "\n")
	return err
}

func programme(channelID string, e schedule.Entry) xmlProgramme {
	it := e.Item
	p := xmlProgramme{
		Start:   e.Start.Format(TimeFormat),
		Stop:    e.End().Format(TimeFormat),
		Channel: channelID,
		Title:   xmlValue{Value: it.Title},
		Length:  &xmlLength{Units: "minutes", Value: int(it.Duration.Round(time.Minute).Minutes())},
	}
	if it.IsEpisode() {
		p.Title = xmlValue{Value: it.Show}
		p.SubTitle = &xmlValue{Value: it.Title}
		if ns := episodeNS(it); ns != "" {
			p.EpisodeNum = &xmlEpisodeNum{System: "xmltv_ns", Value: ns}
		}
	}
	if it.Genre != "" {
		p.Category = &xmlValue{Value: it.Genre}
	}
	if it.Year != nil {
		p.Date = strconv.Itoa(*it.Year)
	}
	return p
}

// episodeNS is the zero-based "season.episode.part" form; unknown parts stay empty.
func episodeNS(it catalog.Item) string {
	if it.Season == nil && it.Episode == nil {
		return ""
	}
	var season, episode string
	if it.Season != nil && *it.Season > 0 {
		season = strconv.Itoa(*it.Season - 1)
	}
	if it.Episode != nil && *it.Episode > 0 {
		episode = strconv.Itoa(*it.Episode - 1)
	}
	return season + "." + episode + "."
}
