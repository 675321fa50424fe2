package main

import (
	"fmt"
	"io"
	"sort"
	"strconv"

	"realtime-hub/domain/event"

	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"
)

var styles = map[event.Kind]color.Style{
	event.ChatKind:         color.New(color.FgGreen),
	event.PresenceKind:     color.New(color.FgCyan),
	event.CallOfferKind:    color.New(color.FgMagenta),
	event.CallAnswerKind:   color.New(color.FgMagenta),
	event.IceCandidateKind: color.New(color.FgMagenta),
	event.EndCallKind:      color.New(color.FgMagenta),
	event.ErrorKind:        color.New(color.BgBlack, color.FgRed),
}

// render prints one inbound event on a single line.
func render(e event.RealtimeEvent, colours bool) string {
	var line string
	switch evt := e.(type) {
	case event.Chat:
		line = fmt.Sprintf("[%s] to=%s %q", evt.Kind(), evt.To, evt.Content)
	case event.Presence:
		state := "offline"
		if evt.Online {
			state = "online"
		}
		line = fmt.Sprintf("[%s] user=%s %s", evt.Kind(), evt.Of, state)
	case event.CallOffer:
		line = fmt.Sprintf("[%s] to=%s sdp=%d bytes", evt.Kind(), evt.To, len(evt.SDP))
	case event.CallAnswer:
		line = fmt.Sprintf("[%s] to=%s sdp=%d bytes", evt.Kind(), evt.To, len(evt.SDP))
	case event.IceCandidate:
		line = fmt.Sprintf("[%s] to=%s %s", evt.Kind(), evt.To, evt.Candidate)
	case event.EndCall:
		line = fmt.Sprintf("[%s] to=%s", evt.Kind(), evt.To)
	case event.Error:
		line = fmt.Sprintf("[%s] %s", evt.Kind(), evt.Message)
	default:
		line = fmt.Sprintf("[%s]", e.Kind())
	}
	if style, ok := styles[e.Kind()]; ok && colours {
		return style.Render(line)
	}
	return line
}

// presenceTable lists online users ordered by id.
func presenceTable(w io.Writer, online map[string]bool) {
	ids := make([]int64, 0, len(online))
	for id := range online {
		if parsed, err := strconv.ParseInt(id, 10, 64); err == nil {
			ids = append(ids, parsed)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"User", "Online"})
	table.SetBorder(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	for _, id := range ids {
		table.Append([]string{strconv.FormatInt(id, 10), "yes"})
	}
	table.SetFooter([]string{"Total", strconv.Itoa(len(ids))})
	table.Render()
}
