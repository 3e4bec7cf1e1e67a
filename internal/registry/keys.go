package registry

import (
	"github.com/nfrund/roster/internal/auth"
	"github.com/nfrund/roster/internal/database"
	"github.com/nfrund/roster/internal/domain"
	"github.com/nfrund/roster/internal/pubsub"
	"github.com/nfrund/roster/internal/userdata"
)

// Service keys. Using typed constants prevents typos and type mismatches.
const (
	DBConnectionKey    Key[database.DBConnection]    = "database.connection"
	ProfileStoreKey    Key[domain.ProfileRepository] = "database.profiles"
	UserStoreKey       Key[domain.UserRepository]    = "database.users"
	PublisherKey       Key[pubsub.Publisher]         = "pubsub.publisher"
	SubscriberKey      Key[pubsub.Subscriber]        = "pubsub.subscriber"
	SessionRegistryKey Key[*auth.Registry]           = "auth.sessions"
	UserDataManagerKey Key[*userdata.Manager]        = "userdata.manager"
)
