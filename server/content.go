package main

import (
	"errors"
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

// ContentType identifies a portfolio panel
type ContentType int

const (
	ContentAbout ContentType = iota
	ContentSkills
	ContentGames
	ContentWeb
	ContentCertificates
	ContentSocial
	ContentContact
	ContentTestimonials
)

// ErrUnknownContent is returned for content names outside the catalogue
var ErrUnknownContent = errors.New("unknown content type")

func (c ContentType) String() string {
	switch c {
	case ContentAbout:
		return "about"
	case ContentSkills:
		return "skills"
	case ContentGames:
		return "games"
	case ContentWeb:
		return "web"
	case ContentCertificates:
		return "certificates"
	case ContentSocial:
		return "social"
	case ContentContact:
		return "contact"
	case ContentTestimonials:
		return "testimonials"
	}
	return fmt.Sprintf("ContentType(%d)", int(c))
}

// ParseContentType is the inverse of String
func ParseContentType(s string) (ContentType, error) {
	switch s {
	case "about":
		return ContentAbout, nil
	case "skills":
		return ContentSkills, nil
	case "games":
		return ContentGames, nil
	case "web":
		return ContentWeb, nil
	case "certificates":
		return ContentCertificates, nil
	case "social":
		return ContentSocial, nil
	case "contact":
		return ContentContact, nil
	case "testimonials":
		return ContentTestimonials, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownContent, s)
}

func (c ContentType) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *ContentType) UnmarshalText(b []byte) error {
	v, err := ParseContentType(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// TitleKey is the translation key the client resolves for the panel title
func (c ContentType) TitleKey() string {
	switch c {
	case ContentAbout:
		return "aboutMe"
	case ContentSkills:
		return "skills"
	case ContentGames:
		return "gameProjects"
	case ContentWeb:
		return "webProjects"
	case ContentCertificates:
		return "certificates"
	case ContentSocial:
		return "socialMedia"
	case ContentContact:
		return "contact"
	case ContentTestimonials:
		return "testimonials"
	}
	return ""
}

// ContentItem is one entry of a panel
type ContentItem struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	DescKey  string `json:"descKey"`
	URL      string `json:"url,omitempty"`
	Embed    bool   `json:"embed,omitempty"`
	ImageKey string `json:"imageKey,omitempty"`
}

// Skill is a named proficiency in percent
type Skill struct {
	Name  string `json:"name"`
	Level int    `json:"level"`
}

// SkillGroup is a titled list of skills
type SkillGroup struct {
	Key    string  `json:"key"`
	Skills []Skill `json:"skills"`
}

// Panel is what the client shows when a content star is reached
type Panel struct {
	Type     ContentType   `json:"type"`
	TitleKey string        `json:"titleKey"`
	Items    []ContentItem `json:"items"`
	Skills   []SkillGroup  `json:"skills,omitempty"`
}

var (
	gameItems = []ContentItem{
		{ID: "2d-frits", Title: "2D Frits", DescKey: "game2DFrits", URL: "https://zidandev.itch.io/2d-frits-020-inv", Embed: true},
		{ID: "space-shot", Title: "Space Shot", DescKey: "gameSpaceShot", URL: "https://zidandev.itch.io/thats-trash", Embed: true},
		{ID: "zidane-world-nexus", Title: "Zidane World Nexus", DescKey: "gameZidaneWorld", URL: "https://zidandev.itch.io/zidane-world-nexus", Embed: true},
		{ID: "eco-love", Title: "Eco Love", DescKey: "gameEcoLove", URL: "https://zidandev.itch.io/eco-love", Embed: true},
	}
	webItems = []ContentItem{
		{ID: "environment", Title: "Environtment", DescKey: "webEnvironment", URL: "https://sekolah-sehat.vercel.app/", Embed: true},
		{ID: "globalvista", Title: "GlobalVista", DescKey: "webGlobalVista", URL: "https://lomba-rho.vercel.app/", Embed: true},
		{ID: "veirtech", Title: "VeirTech", DescKey: "webVeirTech", URL: "https://veirtech.vercel.app/", Embed: true},
		{ID: "sacg", Title: "SACG", DescKey: "webSACG", URL: "https://sacg2.vercel.app/", Embed: true},
	}
	certificateItems = []ContentItem{
		{ID: "veirtech", Title: "VeirTech", DescKey: "certVeirTech", ImageKey: "veirtech"},
		{ID: "hadroh", Title: "Hadroh", DescKey: "certHadroh", ImageKey: "hadroh"},
		{ID: "japanese", Title: "Japanese", DescKey: "certJapan", ImageKey: "japanese"},
	}
	socialItems = []ContentItem{
		{ID: "youtube", Title: "YouTube", DescKey: "youtube", URL: "https://www.youtube.com/@Zidaneangamer8"},
		{ID: "instagram", Title: "Instagram", DescKey: "instagram", URL: "https://www.instagram.com/zidanean.gamer/"},
		{ID: "github", Title: "GitHub", DescKey: "github", URL: "https://github.com/Zidandev"},
		{ID: "itchio", Title: "itch.io", DescKey: "itchio", URL: "https://zidandev.itch.io/"},
	}
	skillGroups = []SkillGroup{
		{Key: "gameEngines", Skills: []Skill{{"Unity", 85}, {"Godot", 75}}},
		{Key: "webDev", Skills: []Skill{{"React", 90}, {"TypeScript", 85}, {"Tailwind CSS", 95}, {"Vite", 80}, {"HTML5/CSS3", 95}}},
		{Key: "languages", Skills: []Skill{{"JavaScript", 90}, {"TypeScript", 85}, {"PHP", 70}, {"Dart", 60}}},
	}
)

// PanelFor returns the catalogue entry for c. Contact and testimonials are
// forms backed by their own endpoints and carry no items.
func PanelFor(c ContentType) Panel {
	p := Panel{Type: c, TitleKey: c.TitleKey(), Items: []ContentItem{}}
	switch c {
	case ContentAbout, ContentContact, ContentTestimonials:
	case ContentSkills:
		p.Skills = skillGroups
	case ContentGames:
		p.Items = gameItems
	case ContentWeb:
		p.Items = webItems
	case ContentCertificates:
		p.Items = certificateItems
	case ContentSocial:
		p.Items = socialItems
	}
	return p
}

// SocialLink looks up a social item by id
func SocialLink(id string) (ContentItem, error) {
	for _, it := range socialItems {
		if it.ID == id {
			return it, nil
		}
	}
	return ContentItem{}, fmt.Errorf("social link %q: %w", id, ErrNotFound)
}

const (
	qrMinSize     = 64
	qrMaxSize     = 1024
	qrDefaultSize = 256
)

// SocialQR renders the link as a PNG QR code of size×size pixels
func SocialQR(id string, size int) ([]byte, error) {
	link, err := SocialLink(id)
	if err != nil {
		return nil, err
	}
	if size == 0 {
		size = qrDefaultSize
	}
	size = int(Clamp(float64(size), qrMinSize, qrMaxSize))
	png, err := qrcode.Encode(link.URL, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("encode qr for %s: %w", id, err)
	}
	return png, nil
}
