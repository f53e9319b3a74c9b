package browser

import (
	"context"
	"fmt"
	"maps"
	"net/http"
	"net/url"
	"strings"

	"scriptbrowser/pkg/fixture"
	"scriptbrowser/pkg/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

const report_browser_submit = "browser.submit"

type FormInfo struct {
	Number int
	Name   string
	ID     string
	Class  string
}

type SubmitInfo struct {
	Number int
	Name   string
	Value  string
}

func (b *Browser) Forms() ([]FormInfo, error) {
	err := b.parse()
	if err != nil {
		return nil, err
	}
	forms := []FormInfo{}
	b.doc.Find("form").Each(func(i int, s *goquery.Selection) {
		forms = append(forms, FormInfo{
			Number: i,
			Name:   s.AttrOr("name", ""),
			ID:     s.AttrOr("id", ""),
			Class:  s.AttrOr("class", ""),
		})
	})
	return forms, nil
}

// FormSelect selects the idx-th form of the page and loads the defaults of
// its fields.
func (b *Browser) FormSelect(idx int) error {
	err := b.parse()
	if err != nil {
		return err
	}
	form := b.doc.Find("form").Eq(idx)
	if form.Length() == 0 {
		return fmt.Errorf("form %d: %w", idx, ErrNotFound)
	}
	return b.selectForm(form)
}

// FormSelectNamed selects the first form whose name or id is nameOrID.
func (b *Browser) FormSelectNamed(nameOrID string) error {
	forms, err := b.Forms()
	if err != nil {
		return err
	}
	for _, f := range forms {
		if f.Name == nameOrID || f.ID == nameOrID {
			return b.FormSelect(f.Number)
		}
	}
	return fmt.Errorf("form %q: %w", nameOrID, ErrNotFound)
}

func (b *Browser) selectForm(form *goquery.Selection) error {
	b.form = form
	b.formData = fieldDefaults(form)
	return nil
}

func isButton(inputType string) bool {
	switch inputType {
	case "submit", "image", "reset", "button":
		return true
	}
	return false
}

// fieldDefaults returns the values a browser would submit for the form if
// nothing was changed. Buttons are left out, they only contribute when
// clicked.
func fieldDefaults(form *goquery.Selection) map[string]string {
	fields := map[string]string{}
	form.Find("input, textarea, select").Each(func(_ int, s *goquery.Selection) {
		name := s.AttrOr("name", "")
		if name == "" {
			return
		}
		if _, disabled := s.Attr("disabled"); disabled {
			return
		}

		switch goquery.NodeName(s) {
		case "input":
			inputType := strings.ToLower(s.AttrOr("type", "text"))
			if isButton(inputType) {
				return
			}
			if inputType == "checkbox" || inputType == "radio" {
				if _, checked := s.Attr("checked"); checked {
					fields[name] = s.AttrOr("value", "on")
				}
				return
			}
			fields[name] = s.AttrOr("value", "")
		case "textarea":
			fields[name] = htmlutil.GetText(s.Get(0))
		case "select":
			options := s.Find("option")
			if options.Length() == 0 {
				return
			}
			chosen := options.Filter("[selected]").First()
			if chosen.Length() == 0 {
				chosen = options.First()
			}
			fields[name] = optionValue(chosen)
		}
	})
	return fields
}

func optionValue(option *goquery.Selection) string {
	value, ok := option.Attr("value")
	if ok {
		return value
	}
	return strings.TrimSpace(option.Text())
}

// FormFields returns the data that would be submitted with the selected form.
func (b *Browser) FormFields() (map[string]string, error) {
	if b.form == nil {
		return nil, ErrNoFormSelected
	}
	return maps.Clone(b.formData), nil
}

func (b *Browser) dropdownNames() []string {
	var names []string
	b.form.Find("select[name]").Each(func(_ int, s *goquery.Selection) {
		names = append(names, s.AttrOr("name", ""))
	})
	return names
}

// FormDropdowns returns the names of the dropdowns in the selected form.
func (b *Browser) FormDropdowns() ([]string, error) {
	if b.form == nil {
		return nil, ErrNoFormSelected
	}
	return b.dropdownNames(), nil
}

func (b *Browser) dropdownOptions(name string) (*goquery.Selection, error) {
	if b.form == nil {
		return nil, ErrNoFormSelected
	}
	options := b.form.Find("select").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return s.AttrOr("name", "") == name
	}).Find("option")
	if options.Length() == 0 {
		return nil, fmt.Errorf("dropdown %q: %w", name, ErrNotFound)
	}
	return options, nil
}

// FormDropdownOptions maps the visible text of every option of a dropdown to
// its value.
func (b *Browser) FormDropdownOptions(name string) (map[string]string, error) {
	options, err := b.dropdownOptions(name)
	if err != nil {
		return nil, err
	}
	out := map[string]string{}
	options.Each(func(_ int, s *goquery.Selection) {
		out[strings.TrimSpace(s.Text())] = optionValue(s)
	})
	return out, nil
}

// FormFillDropdown chooses the option titled optionTitle, an empty title
// chooses the first option.
func (b *Browser) FormFillDropdown(name, optionTitle string) error {
	options, err := b.dropdownOptions(name)
	if err != nil {
		return err
	}
	chosen := options.First()
	if optionTitle != "" {
		chosen = options.FilterFunction(func(_ int, s *goquery.Selection) bool {
			return strings.TrimSpace(s.Text()) == optionTitle
		}).First()
		if chosen.Length() == 0 {
			return fmt.Errorf("option %q of dropdown %q: %w", optionTitle, name, ErrNotFound)
		}
	}
	b.formData[name] = optionValue(chosen)
	return nil
}

// FormDataUpdate overwrites or adds fields of the data to submit.
func (b *Browser) FormDataUpdate(values map[string]string) error {
	if b.form == nil {
		return ErrNoFormSelected
	}
	maps.Copy(b.formData, values)
	return nil
}

// FormSubmits lists the submit buttons of the selected form.
func (b *Browser) FormSubmits() ([]SubmitInfo, error) {
	if b.form == nil {
		return nil, ErrNoFormSelected
	}
	submits := []SubmitInfo{}
	b.form.Find(`input[type="submit"], button[type="submit"]`).Each(func(i int, s *goquery.Selection) {
		submits = append(submits, SubmitInfo{
			Number: i,
			Name:   s.AttrOr("name", ""),
			Value:  s.AttrOr("value", ""),
		})
	})
	if len(submits) == 0 {
		return nil, ErrNoSubmit
	}
	return submits, nil
}

// FormSubmit submits the selected form with its only submit button. Forms
// with several buttons need FormSubmitButton or FormSubmitButtonNamed.
func (b *Browser) FormSubmit(ctx context.Context) (int, error) {
	submits, err := b.FormSubmits()
	if err != nil {
		return 0, err
	}
	if len(submits) > 1 {
		return 0, ErrImplicitSubmit
	}
	return b.submitWith(ctx, submits[0])
}

func (b *Browser) FormSubmitButton(ctx context.Context, idx int) (int, error) {
	submits, err := b.FormSubmits()
	if err != nil {
		return 0, err
	}
	if idx < 0 || idx >= len(submits) {
		return 0, fmt.Errorf("submit button %d: %w", idx, ErrNotFound)
	}
	return b.submitWith(ctx, submits[idx])
}

// FormSubmitButtonNamed submits with the first button whose name or value is
// nameOrValue.
func (b *Browser) FormSubmitButtonNamed(ctx context.Context, nameOrValue string) (int, error) {
	submits, err := b.FormSubmits()
	if err != nil {
		return 0, err
	}
	for _, s := range submits {
		if s.Name == nameOrValue || s.Value == nameOrValue {
			return b.submitWith(ctx, s)
		}
	}
	return 0, fmt.Errorf("submit button %q: %w", nameOrValue, ErrNotFound)
}

// FormSubmitNoButton submits the selected form without any button taking
// part in the data.
func (b *Browser) FormSubmitNoButton(ctx context.Context) (int, error) {
	if b.form == nil {
		return 0, ErrNoFormSelected
	}
	return b.submit(ctx, b.formData)
}

func (b *Browser) submitWith(ctx context.Context, button SubmitInfo) (int, error) {
	data := b.formData
	if button.Name != "" {
		data = maps.Clone(b.formData)
		data[button.Name] = button.Value
	}
	return b.submit(ctx, data)
}

func (b *Browser) submit(ctx context.Context, data map[string]string) (int, error) {
	method := strings.ToUpper(b.form.AttrOr("method", http.MethodGet))
	action := htmlutil.ResolveURL(b.page.url, b.form.AttrOr("action", ""))
	b.tel.ReportDebug(report_browser_submit, method, action, len(data))

	if method == http.MethodPost {
		return b.visit(ctx, action, http.MethodPost, fixture.Pairs(data))
	}

	values := url.Values{}
	for k, v := range data {
		values.Set(k, v)
	}
	sep := "?"
	if strings.Contains(action, "?") {
		sep = "&"
	}
	return b.visit(ctx, action+sep+values.Encode(), http.MethodGet, fixture.NoData())
}
