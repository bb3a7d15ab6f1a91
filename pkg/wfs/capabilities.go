package wfs

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Capabilities summarizes the parts of a GetCapabilities response the
// downloader cares about: the published table list and the server's
// per-request result ceiling.
type Capabilities struct {
	// Tables is the list of feature types served, without the "pub:" prefix.
	Tables []string

	// PageSize is the server's CountDefault constraint, the hard ceiling on
	// features per GetFeature request. Zero if the server did not report one.
	PageSize int
}

// Field is one attribute column of a feature type.
type Field struct {
	Name string
	Type string
}

// FeatureType is the wire-level schema of one table as reported by
// DescribeFeatureType.
type FeatureType struct {
	Name           string
	Fields         []Field
	GeometryColumn string
	GeometryType   string
}

type capabilitiesDoc struct {
	Constraints []struct {
		Name         string `xml:"name,attr"`
		DefaultValue string `xml:"DefaultValue"`
	} `xml:"OperationsMetadata>Constraint"`
	FeatureTypes []struct {
		Name string `xml:"Name"`
	} `xml:"FeatureTypeList>FeatureType"`
}

// Capabilities requests and parses GetCapabilities.
func (c *Client) Capabilities(ctx context.Context) (*Capabilities, error) {
	params := url.Values{}
	params.Set("service", "WFS")
	params.Set("version", "2.0.0")
	params.Set("request", "GetCapabilities")

	body, err := c.getWithRetry(ctx, "GetCapabilities", c.config.OWSURL+"?"+params.Encode())
	if err != nil {
		return nil, err
	}

	var doc capabilitiesDoc
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("parse capabilities: %w", err)
	}

	caps := &Capabilities{}
	for _, constraint := range doc.Constraints {
		if constraint.Name == "CountDefault" {
			if n, err := strconv.Atoi(strings.TrimSpace(constraint.DefaultValue)); err == nil {
				caps.PageSize = n
			}
		}
	}
	for _, ft := range doc.FeatureTypes {
		caps.Tables = append(caps.Tables, strings.TrimPrefix(strings.TrimSpace(ft.Name), "pub:"))
	}

	c.logger.Debug().
		Int("tables", len(caps.Tables)).
		Int("pagesize", caps.PageSize).
		Msg("Capabilities parsed")

	return caps, nil
}

type describeFeatureTypeDoc struct {
	Elements []struct {
		Name string `xml:"name,attr"`
		Type string `xml:"type,attr"`
	} `xml:"complexType>complexContent>extension>sequence>element"`
}

// DescribeFeatureType requests the XSD for a table and extracts its field
// names/types and geometry column.
func (c *Client) DescribeFeatureType(ctx context.Context, table string) (*FeatureType, error) {
	params := url.Values{}
	params.Set("service", "WFS")
	params.Set("version", "2.0.0")
	params.Set("request", "DescribeFeatureType")
	params.Set("typeName", table)

	body, err := c.getWithRetry(ctx, "DescribeFeatureType", c.config.OWSURL+"?"+params.Encode())
	if err != nil {
		return nil, err
	}

	var doc describeFeatureTypeDoc
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("parse feature type schema for %s: %w", table, err)
	}
	if len(doc.Elements) == 0 {
		return nil, fmt.Errorf("no fields in feature type schema for %s", table)
	}

	ft := &FeatureType{Name: table}
	for _, el := range doc.Elements {
		// Geometry fields carry a gml-typed element, attributes an xsd type.
		if strings.HasPrefix(el.Type, "gml:") {
			ft.GeometryColumn = el.Name
			ft.GeometryType = strings.TrimSuffix(strings.TrimPrefix(el.Type, "gml:"), "PropertyType")
			continue
		}
		ft.Fields = append(ft.Fields, Field{
			Name: el.Name,
			Type: strings.TrimPrefix(el.Type, "xsd:"),
		})
	}

	return ft, nil
}
