package view

import (
	"github.com/nfrund/roster/internal/domain"
	g "maragu.dev/gomponents"
	h "maragu.dev/gomponents/html"
)

// SignupPage is the registration form. email pre-fills the form after a
// failed attempt.
func SignupPage(email string, flashes Flashes) g.Node {
	return Page("Sign up", flashes,
		h.Div(
			h.Class("max-w-sm mx-auto bg-white shadow rounded-xl p-8"),
			h.H1(h.Class("text-2xl font-bold mb-6"), g.Text("Create an account")),
			h.Form(
				h.Method("post"), h.Action("/auth/signup"),
				h.Class("space-y-4"),
				field("email", "Email", "email", email),
				field("password", "Password", "password", ""),
				field("username", "Username", "text", ""),
				h.Div(
					h.Label(h.For("userType"), h.Class("block text-sm mb-1"), g.Text("Account type")),
					h.Select(h.ID("userType"), h.Name("userType"), h.Class("w-full border rounded p-2"),
						h.Option(h.Value(domain.UserTypeGeneral), g.Text("Member")),
						h.Option(h.Value(domain.UserTypeEscort), g.Text("Companion")),
					),
				),
				optionalField("age", "Age", "number"),
				optionalField("gender", "Gender", "text"),
				optionalField("locationName", "Location", "text"),
				h.Button(h.Type("submit"), h.Class("w-full py-2 rounded bg-indigo-600 text-white"), g.Text("Sign up")),
			),
			h.P(h.Class("mt-4 text-sm"), g.Text("Already registered? "), h.A(h.Href("/auth/login"), g.Text("Sign in"))),
		),
	)
}

func optionalField(name, label, typ string) g.Node {
	return h.Div(
		h.Label(h.For(name), h.Class("block text-sm mb-1"), g.Text(label)),
		h.Input(h.ID(name), h.Name(name), h.Type(typ), h.Class("w-full border rounded p-2")),
	)
}
