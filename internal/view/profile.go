package view

import (
	"strings"
	"time"

	"github.com/nfrund/roster/internal/domain"
	"github.com/nfrund/roster/internal/userdata"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	g "maragu.dev/gomponents"
	hx "maragu.dev/gomponents-htmx"
	h "maragu.dev/gomponents/html"
)

// PanelID is the element the refresh button swaps.
const PanelID = "userdata"

var titleCase = cases.Title(language.English)

// ProfilePage renders the signed-in user's cached data.
func ProfilePage(st userdata.State, flashes Flashes) g.Node {
	title := "My profile"
	if st.User != nil && st.User.Username != "" {
		title = st.User.Username
	}
	return Page(title, flashes, UserDataPanel(st))
}

// UserDataPanel is the swappable part of the profile page.
func UserDataPanel(st userdata.State) g.Node {
	return h.Section(
		h.ID(PanelID),
		h.Class("space-y-6"),
		h.Div(
			h.Class("flex items-center justify-between"),
			h.H1(h.Class("text-3xl font-bold"), g.Text(displayName(st.User))),
			h.Button(
				h.Type("button"),
				h.Class("px-3 py-1 rounded border"),
				hx.Post("/app/me/refetch"),
				hx.Target("#"+PanelID),
				hx.Swap("outerHTML"),
				g.Text("Refresh"),
			),
		),
		g.If(st.IsLoading, h.P(h.Class("text-gray-500"), h.Role("status"), g.Text("Loading…"))),
		g.If(st.Err != nil, h.P(h.Class("p-3 rounded bg-red-100 text-red-800"), h.Role("alert"), g.Text(errText(st.Err)))),
		g.If(st.Status == userdata.StatusUnauthenticated, h.P(g.Text("You are signed out."))),
		g.If(!st.Persistence.OK(), h.P(h.Class("text-amber-700 text-sm"), g.Text("Changes may not persist across reloads."))),
		g.If(st.User != nil, profileDetails(st.User)),
		section("Pictures", len(st.Pictures), g.Map(st.Pictures, pictureItem)),
		section("Rates", len(st.Rates), g.Map(st.Rates, rateItem)),
		section("Testimonials", len(st.Testimonials), g.Map(st.Testimonials, testimonialItem)),
		section("Stories", len(st.Stories), g.Map(st.Stories, storyItem)),
		section("Bookmarks", len(st.Bookmarks), g.Map(st.Bookmarks, bookmarkItem)),
	)
}

func displayName(p *domain.Profile) string {
	switch {
	case p == nil:
		return "My profile"
	case p.Username != "":
		return p.Username
	default:
		return p.Email
	}
}

func errText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func profileDetails(p *domain.Profile) g.Node {
	var rows []g.Node
	add := func(label, value string) {
		if value != "" {
			rows = append(rows, h.Dt(h.Class("font-semibold"), g.Text(label)), h.Dd(g.Text(value)))
		}
	}
	add("Type", titleCase.String(p.UserType))
	add("Location", p.LocationName)
	add("Offer", p.CurrentOffer)
	if p.AvailableUntil != nil {
		add("Available until", p.AvailableUntil.Format(time.RFC1123))
	}
	if len(p.Services) > 0 {
		services := make([]string, len(p.Services))
		for i, s := range p.Services {
			services[i] = titleCase.String(s)
		}
		add("Services", strings.Join(services, ", "))
	}
	return h.Dl(h.Class("grid grid-cols-2 gap-2 bg-white p-4 rounded shadow"), g.Group(rows))
}

func section(title string, n int, items g.Group) g.Node {
	return h.Div(
		h.H2(h.Class("text-xl font-semibold mb-2"), g.Textf("%s (%d)", title, n)),
		g.If(n == 0, h.P(h.Class("text-gray-500"), g.Text("Nothing yet."))),
		g.If(n > 0, h.Ul(h.Class("space-y-2"), items)),
	)
}

func pictureItem(p domain.Picture) g.Node {
	return h.Li(
		h.Img(h.Src(p.URL), h.Alt(p.Title), h.Class("h-32 rounded")),
		g.If(p.IsMain, h.Span(h.Class("text-xs text-indigo-700"), g.Text("Main picture"))),
	)
}

func rateItem(r domain.Rate) g.Node {
	where := "Incall"
	if r.Outcall {
		where = "Outcall"
	}
	return h.Li(g.Textf("%s: %s for %s (%s)", r.Reason, r.Price, r.Duration, where))
}

func testimonialItem(t domain.Testimonial) g.Node {
	return h.Li(
		h.Class("bg-white p-3 rounded shadow"),
		h.P(g.Text(t.Comment)),
		h.P(h.Class("text-sm text-gray-500"), g.Textf("by %s", t.Owner.Username)),
	)
}

func storyItem(s domain.Story) g.Node {
	if s.IsVideo {
		return h.Li(h.Video(h.Src(s.URL), g.Attr("poster", s.Thumbnail), h.Controls()))
	}
	return h.Li(h.Img(h.Src(s.URL), h.Alt(s.Title), h.Class("h-32 rounded")))
}

func bookmarkItem(b domain.Bookmark) g.Node {
	return h.Li(h.A(h.Href("/profiles/"+b.To), g.Text(b.To)))
}
