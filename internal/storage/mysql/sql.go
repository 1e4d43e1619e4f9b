package mysql

const selectUnitsSQL = `
SELECT
  u.id,
  u.name,
  u.type_id,
  t.pricing_model,
  u.max_occupancy,
  u.parent_id
FROM units u
JOIN accommodation_types t ON t.id = u.type_id
ORDER BY u.id
`

const selectUnitSQL = `
SELECT
  u.id,
  u.name,
  u.type_id,
  t.pricing_model,
  u.max_occupancy,
  u.parent_id
FROM units u
JOIN accommodation_types t ON t.id = u.type_id
WHERE u.id = ?
`

// Shared SELECT for reservation reads; callers append WHERE / ORDER BY.
// Joined names save the API a round of lookups.
const selectReservationBase = `
SELECT
  r.id,
  r.reference,
  r.guest_id,
  r.unit_id,
  r.platform_id,
  r.start_date,
  r.end_date,
  r.party_size,
  r.status,
  g.name,
  u.name,
  p.name
FROM reservations r
JOIN guests g    ON g.id = r.guest_id
JOIN units u     ON u.id = r.unit_id
JOIN platforms p ON p.id = r.platform_id
`

// Half-open ranges: a stay ending on day X never collides with one
// starting on day X. Cancelled stays do not block.
const overlapWhere = `
WHERE r.start_date < ? AND r.end_date > ? AND r.status <> 'Cancelled'
`

const insertReservationSQL = `
INSERT INTO reservations
  (reference, guest_id, unit_id, platform_id, start_date, end_date, party_size, status)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?)
`

const updateReservationSQL = `
UPDATE reservations
SET unit_id    = ?,
    start_date = ?,
    end_date   = ?,
    party_size = ?,
    updated_at = CURRENT_TIMESTAMP
WHERE id = ?
`

const updateStatusSQL = `
UPDATE reservations
SET status = ?, updated_at = CURRENT_TIMESTAMP
WHERE id = ?
`

const deleteReservationSQL = `DELETE FROM reservations WHERE id = ?`

const insertItemSQL = `
INSERT INTO reservation_items (reservation_id, category_id, quantity, unit_price)
VALUES (?, ?, ?, ?)
`

const deleteItemsSQL = `DELETE FROM reservation_items WHERE reservation_id = ?`

const selectItemsSQL = `
SELECT
  i.id,
  i.reservation_id,
  i.category_id,
  c.name,
  i.quantity,
  i.unit_price
FROM reservation_items i
JOIN rate_categories c ON c.id = i.category_id
WHERE i.reservation_id = ?
ORDER BY i.id
`

const guestByEmailSQL = `
SELECT id, name, email, phone, street, house_no, postal_code, city, country
FROM guests
WHERE email = ?
`

const guestByIDSQL = `
SELECT id, name, email, phone, street, house_no, postal_code, city, country
FROM guests
WHERE id = ?
`

const insertGuestSQL = `
INSERT INTO guests (name, email, phone, street, house_no, postal_code, city, country)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`

// Platform-specific rows sort before generic ones (NULL platform_id lands
// last under DESC); among equals the newest window, then the highest id,
// wins. LIMIT 1 makes the resolution total.
const resolveRateSQL = `
SELECT
  r.id,
  r.type_id,
  r.category_id,
  r.platform_id,
  r.price,
  r.tax_included,
  r.tax_rate,
  r.valid_from,
  r.valid_to,
  c.name
FROM rates r
JOIN rate_categories c ON c.id = r.category_id
WHERE r.type_id = ?
  AND (r.platform_id = ? OR r.platform_id IS NULL)
  AND r.valid_from <= ?
  AND (r.valid_to IS NULL OR r.valid_to >= ?)
ORDER BY r.platform_id DESC, r.valid_from DESC, r.id DESC
LIMIT 1
`

const selectPlatformsSQL = `
SELECT id, name, commission
FROM platforms
ORDER BY id
`

const insertAuditSQL = `
INSERT INTO audit_log (action, entity, entity_id, at)
VALUES (?, ?, ?, ?)
`
