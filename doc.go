// Package reviewkit stores employee performance reviews in a relational
// database. A Session ties a connection to the department, employee and
// review stores; each Session keeps its own review identity map.
package reviewkit
