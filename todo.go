/*
	Project: Syllabus - subjects, sections & topics of a course, edited from one admin page
	Binaries: apps/api (REST API + pages), apps/admin (operator CLI)
*/
package syllabus

/*
TODO: api: throttle POST /login & /api/login per remote address
TODO: import: print the names of the subjects skipped because they already exist
TODO: admin: reorder sections & topics (needs a position column in 00002 migration)

Layout:
	- core: config, logger, validators, errors & the content service
	- storage/database: inmem & postgres repositories, goose migrations
	- frontend: renderer, gateway, dialogs & the headless admin console
	- apps/api/echo: the HTTP server
	- services/logger: rollbar
*/
