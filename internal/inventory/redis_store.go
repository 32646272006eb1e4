package inventory

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/example/ebike-ride/internal/models"
)

// RedisStore keeps bike positions in a GEO set and bike attributes in one hash per bike.
type RedisStore struct {
	client *redis.Client
	key    string
}

func NewRedisStore(client *redis.Client, key string) *RedisStore {
	return &RedisStore{client: client, key: key}
}

func (r *RedisStore) Upsert(ctx context.Context, bikes ...models.Bike) error {
	if len(bikes) == 0 {
		return nil
	}
	pipe := r.client.TxPipeline()
	for _, b := range bikes {
		name := strconv.Itoa(b.ID)
		pipe.GeoAdd(ctx, r.key, &redis.GeoLocation{Longitude: b.Location.Lng, Latitude: b.Location.Lat, Name: name})
		pipe.HSet(ctx, metaKey(name), map[string]interface{}{
			"battery": b.BatteryPercent,
			"model":   b.Model,
			"rate":    strconv.FormatFloat(b.RatePerMinute, 'f', -1, 64),
			"range":   strconv.FormatFloat(b.RangeKm, 'f', -1, 64),
		})
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (r *RedisStore) Nearby(ctx context.Context, center models.Coord, radiusKm float64, limit int) ([]models.Bike, error) {
	q := &redis.GeoSearchLocationQuery{
		GeoSearchQuery: redis.GeoSearchQuery{
			Longitude:  center.Lng,
			Latitude:   center.Lat,
			Radius:     radiusKm,
			RadiusUnit: "km",
			Sort:       "ASC",
			Count:      limit,
		},
		WithCoord: true,
	}
	res, err := r.client.GeoSearchLocation(ctx, r.key, q).Result()
	if err != nil {
		return nil, fmt.Errorf("geosearch %s: %w", r.key, err)
	}
	out := make([]models.Bike, 0, len(res))
	for _, g := range res {
		id, err := strconv.Atoi(g.Name)
		if err != nil {
			continue
		}
		b := models.Bike{ID: id, Location: models.Coord{Lat: g.Latitude, Lng: g.Longitude}}
		m, err := r.client.HGetAll(ctx, metaKey(g.Name)).Result()
		if err != nil {
			return nil, fmt.Errorf("bike %d metadata: %w", id, err)
		}
		b.Model = m["model"]
		b.BatteryPercent, _ = strconv.Atoi(m["battery"])
		b.RatePerMinute, _ = strconv.ParseFloat(m["rate"], 64)
		b.RangeKm, _ = strconv.ParseFloat(m["range"], 64)
		out = append(out, b)
	}
	return out, nil
}

func metaKey(id string) string { return "bike:meta:" + id }
