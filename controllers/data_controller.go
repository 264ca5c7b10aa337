package controllers

import (
	"errors"
	"fmt"
	"log"
	"net/http"

	"mse_backend_project/services/archive"

	"github.com/gin-gonic/gin"
)

// DirectoryResolver resolves the current universe of instrument codes.
type DirectoryResolver interface {
	FetchIssuerCodes() ([]string, error)
}

// DataController serves the consolidated datasets and the live instrument
// directory.
type DataController struct {
	store   *archive.Store
	scraper DirectoryResolver
}

// NewDataController creates a new data controller.
func NewDataController(store *archive.Store, sc DirectoryResolver) *DataController {
	return &DataController{store: store, scraper: sc}
}

// GetIssuerData returns the consolidated dataset for one instrument.
// GET /api/data/:issuer_code
func (dc *DataController) GetIssuerData(c *gin.Context) {
	code := c.Param("issuer_code")

	rows, err := dc.store.ReadCombined(code)
	if err != nil {
		if errors.Is(err, archive.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": fmt.Sprintf("Data for issuer code %s not found", code),
			})
			return
		}
		log.Printf("Error reading consolidated data for %s: %v", code, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read consolidated data"})
		return
	}

	c.JSON(http.StatusOK, rows)
}

// GetCompanyCodes returns the currently resolvable instrument codes. This
// is a live directory resolution, not a cached read.
// GET /api/companies
func (dc *DataController) GetCompanyCodes(c *gin.Context) {
	codes, err := dc.scraper.FetchIssuerCodes()
	if err != nil {
		log.Printf("Error resolving issuer codes: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to resolve issuer codes"})
		return
	}

	c.JSON(http.StatusOK, codes)
}
