package server

import (
	"fmt"
	"net/http"
)

// capabilitiesTemplate is a minimal WMTS capabilities document naming
// the tile addressing scheme; enough for desktop GIS clients to add
// the layer
const capabilitiesTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<Capabilities xmlns="http://www.opengis.net/wmts/1.0" version="1.0.0">
  <Contents>
    <Layer>
      <Title>Outdoor Map</Title>
      <Identifier>outdoor</Identifier>
      <Format>image/png</Format>
      <Format>image/jpeg</Format>
      <TileMatrixSetLink>
        <TileMatrixSet>GoogleMapsCompatible</TileMatrixSet>
      </TileMatrixSetLink>
      <ResourceURL format="image/png" resourceType="tile"
        template="%s://%s/{TileMatrix}/{TileCol}/{TileRow}"/>
    </Layer>
    <TileMatrixSet>
      <Identifier>GoogleMapsCompatible</Identifier>
      <SupportedCRS>urn:ogc:def:crs:EPSG::3857</SupportedCRS>
    </TileMatrixSet>
  </Contents>
</Capabilities>
`

func (s *Server) handleCapabilities(w http.ResponseWriter, r *http.Request) {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	w.Header().Set("Content-Type", "application/xml")
	fmt.Fprintf(w, capabilitiesTemplate, scheme, r.Host)
}
