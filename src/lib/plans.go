package lib

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/tidwall/gjson"
)

// Plan is the slice of the Plan Catalog response this engine cares about.
type Plan struct {
	Price int64  `json:"price"`
	Name  string `json:"name"`
}

// GetPlan resolves a platform plan from the Plan Catalog service, caching
// results in redis for a few minutes.
func GetPlan(ctx context.Context, planId string) (*Plan, error) {
	cacheKey := fmt.Sprintf("plan:%s", planId)
	rd := GetRedisClient()
	if rd != nil {
		val := rd.Get(ctx, cacheKey).Val()
		if val != "" {
			var plan Plan
			if err := json.Unmarshal([]byte(val), &plan); err == nil {
				return &plan, nil
			}
		}
	}

	catalogHost := os.Getenv("PLAN_CATALOG_URL")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/plans/%s", catalogHost, planId), nil)
	if err != nil {
		return nil, err
	}
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Printf("[PlanCatalog] Error response from API: %s\n", err.Error())
		return nil, err
	}
	defer res.Body.Close()
	if res.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("plan %s not found", planId)
	}
	body, err := io.ReadAll(res.Body)
	if err != nil {
		log.Printf("[PlanCatalog] Error reading response: %s\n", err.Error())
		return nil, err
	}
	plan := Plan{
		Price: gjson.GetBytes(body, "price").Int(),
		Name:  gjson.GetBytes(body, "name").String(),
	}

	if rd != nil {
		if b, err := json.Marshal(&plan); err == nil {
			rd.SetEx(ctx, cacheKey, string(b), 5*time.Minute)
		}
	}
	return &plan, nil
}
