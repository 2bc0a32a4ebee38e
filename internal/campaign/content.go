package campaign

import "strings"

// Subject resolves the subject line: variant override, then campaign
// subject, then campaign name.
func Subject(c Campaign, v *Variant) string {
	if v != nil && v.Subject != nil && strings.TrimSpace(*v.Subject) != "" {
		return *v.Subject
	}
	if strings.TrimSpace(c.Subject) != "" {
		return c.Subject
	}
	return c.Name
}

// Body resolves the message body: variant override, then campaign content,
// then campaign description.
func Body(c Campaign, v *Variant) string {
	if v != nil && v.Content != nil && strings.TrimSpace(*v.Content) != "" {
		return *v.Content
	}
	if strings.TrimSpace(c.Content) != "" {
		return c.Content
	}
	return c.Description
}

// Render substitutes customer placeholders such as {first_name}.
func Render(template string, cu Customer) string {
	if !strings.Contains(template, "{") {
		return template
	}
	r := strings.NewReplacer(
		"{first_name}", cu.FirstName,
		"{last_name}", cu.LastName,
		"{email}", cu.Email,
		"{phone}", cu.Phone,
	)
	return r.Replace(template)
}
