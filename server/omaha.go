package server

import (
	"encoding/xml"
	"fmt"
	"strconv"

	"github.com/otakit/otaserve"
)

// Minimal Omaha-style wire documents: one app, one package, no batching and
// no delta negotiation.

type updateRequest struct {
	XMLName xml.Name `xml:"request"`
	Apps    []struct {
		ID string `xml:"appid,attr"`
	} `xml:"app"`
}

// parseUpdateRequest extracts the application identifier from an update-check
// request body.
func parseUpdateRequest(body []byte) (string, error) {
	var req updateRequest
	if err := xml.Unmarshal(body, &req); err != nil {
		return "", fmt.Errorf("otaserve: malformed update check request: %w", err)
	}
	for _, app := range req.Apps {
		if app.ID != "" {
			return app.ID, nil
		}
	}
	return "", otaserve.ErrMissingAppID
}

type updateResponse struct {
	XMLName  xml.Name    `xml:"response"`
	Protocol string      `xml:"protocol,attr"`
	App      responseApp `xml:"app"`
}

type responseApp struct {
	ID          string      `xml:"appid,attr"`
	UpdateCheck updateCheck `xml:"updatecheck"`
}

type updateCheck struct {
	Status   string           `xml:"status,attr"`
	URLs     responseURLs     `xml:"urls"`
	Manifest responseManifest `xml:"manifest"`
}

type responseURLs struct {
	URLs []responseURL `xml:"url"`
}

type responseURL struct {
	Codebase string `xml:"codebase,attr"`
}

type responseManifest struct {
	Version  string           `xml:"version,attr"`
	Actions  responseActions  `xml:"actions"`
	Packages responsePackages `xml:"packages"`
}

type responseActions struct {
	Actions []responseAction `xml:"action"`
}

type responseAction struct {
	Event        string `xml:"event,attr"`
	Run          string `xml:"run,attr,omitempty"`
	MetadataSize string `xml:"MetadataSize,attr,omitempty"`
	SHA256       string `xml:"sha256,attr,omitempty"`
}

type responsePackages struct {
	Packages []responsePackage `xml:"package"`
}

type responsePackage struct {
	Hash     string `xml:"hash_sha256,attr"`
	Name     string `xml:"name,attr"`
	Size     int64  `xml:"size,attr"`
	Required bool   `xml:"required,attr"`
}

// updateDescriptor carries everything a device needs to fetch and verify the
// payload: where to call back, how many bytes, and what they hash to.
type updateDescriptor struct {
	AppID        string
	Codebase     string
	PackageName  string
	SHA256       string
	Size         int64
	MetadataSize int64
}

func buildUpdateResponse(d updateDescriptor) updateResponse {
	return updateResponse{
		Protocol: "3.0",
		App: responseApp{
			ID: d.AppID,
			UpdateCheck: updateCheck{
				Status: "ok",
				URLs: responseURLs{
					URLs: []responseURL{{Codebase: d.Codebase}},
				},
				Manifest: responseManifest{
					Version: "0.0.0.1",
					Actions: responseActions{
						Actions: []responseAction{
							{Event: "install", Run: d.PackageName},
							{
								Event:        "postinstall",
								MetadataSize: strconv.FormatInt(d.MetadataSize, 10),
								SHA256:       d.SHA256,
							},
						},
					},
					Packages: responsePackages{
						Packages: []responsePackage{{
							Hash:     d.SHA256,
							Name:     d.PackageName,
							Size:     d.Size,
							Required: true,
						}},
					},
				},
			},
		},
	}
}

func encodeUpdateResponse(resp updateResponse) ([]byte, error) {
	out, err := xml.MarshalIndent(resp, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("otaserve: encode update response: %w", err)
	}
	return append([]byte(xml.Header), out...), nil
}
